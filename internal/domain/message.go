package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ReactionEvent — одна поставленная реакция: кто и когда.
type ReactionEvent struct {
	From string    `json:"from"`
	Date time.Time `json:"date"`
}

// Reaction — эмодзи и список событий, в которых его поставили.
type Reaction struct {
	Emoji  string          `json:"emoji"`
	Events []ReactionEvent `json:"events"`
}

// Message — разобранное сообщение чата.
//
// После создания сообщение не меняется, за исключением однократной установки
// ReplyTo при разрешении ссылок на ответы (см. пакет replies).
type Message struct {
	ID        int
	From      string
	FromID    string
	Text      string
	Date      time.Time
	Edited    *time.Time
	ReplyToID *int
	// ReplyTo указывает на сообщение из того же чата. Сообщение им не владеет.
	ReplyTo *Message
	// OtherEntityTypes — отсортированное множество типов фрагментов текста, кроме "plain".
	OtherEntityTypes []string
	Reactions        []Reaction
}

// HasEntityType сообщает, содержит ли сообщение фрагмент указанного типа.
func (m *Message) HasEntityType(entityType string) bool {
	i := sort.SearchStrings(m.OtherEntityTypes, entityType)
	return i < len(m.OtherEntityTypes) && m.OtherEntityTypes[i] == entityType
}

// IsEdited сообщает, редактировалось ли сообщение.
func (m *Message) IsEdited() bool {
	return m.Edited != nil
}

func (m *Message) String() string {
	return fmt.Sprintf("Message(%d from %s at %s)", m.ID, m.From, m.Date.Format(ExportDateLayout))
}

// ParseDate разбирает дату экспорта. Зона не указана, время трактуется как настенное (UTC).
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(ExportDateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("не удалось разобрать дату %q: %w", value, err)
	}
	return t, nil
}

// ParseMessage преобразует запись экспорта в Message.
// Служебные записи не поддерживаются и возвращают ErrNotAMessage.
func ParseMessage(record ExportedMessage) (*Message, error) {
	if !record.IsMessage() {
		return nil, fmt.Errorf("запись %d типа %q: %w", record.ID, record.Type, ErrNotAMessage)
	}

	date, err := ParseDate(record.Date)
	if err != nil {
		return nil, fmt.Errorf("сообщение %d: %w", record.ID, err)
	}

	msg := &Message{
		ID:               record.ID,
		From:             record.From,
		FromID:           record.FromID,
		Text:             FlattenText(record.Text, record.TextEntities),
		Date:             date,
		OtherEntityTypes: otherEntityTypes(record.TextEntities),
	}

	if record.Edited != "" {
		edited, err := ParseDate(record.Edited)
		if err != nil {
			return nil, fmt.Errorf("сообщение %d, поле edited: %w", record.ID, err)
		}
		msg.Edited = &edited
	}

	if record.ReplyToMessageID != nil {
		replyTo := *record.ReplyToMessageID
		msg.ReplyToID = &replyTo
	}

	for _, r := range record.Reactions {
		if r.Type != ReactionTypeEmoji {
			continue
		}
		reaction := Reaction{Emoji: r.Emoji, Events: make([]ReactionEvent, 0, len(r.Recent))}
		for _, recent := range r.Recent {
			at, err := ParseDate(recent.Date)
			if err != nil {
				return nil, fmt.Errorf("сообщение %d, реакция %s: %w", record.ID, r.Emoji, err)
			}
			reaction.Events = append(reaction.Events, ReactionEvent{From: recent.From, Date: at})
		}
		msg.Reactions = append(msg.Reactions, reaction)
	}

	return msg, nil
}

// FlattenText возвращает текст сообщения: поле text, если это непустая строка,
// иначе склейку text всех фрагментов из text_entities. Если text_entities
// отсутствуют, а text — массив фрагментов, склеивается сам массив.
func FlattenText(raw json.RawMessage, entities []TextEntity) string {
	var literal string
	if len(raw) > 0 && json.Unmarshal(raw, &literal) == nil && literal != "" {
		return literal
	}

	var sb strings.Builder
	if len(entities) > 0 {
		for _, e := range entities {
			sb.WriteString(e.Text)
		}
		return sb.String()
	}

	var fragments []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fragments) != nil {
		return ""
	}
	for _, f := range fragments {
		var s string
		if json.Unmarshal(f, &s) == nil {
			sb.WriteString(s)
			continue
		}
		var e TextEntity
		if json.Unmarshal(f, &e) == nil {
			sb.WriteString(e.Text)
		}
	}
	return sb.String()
}

func otherEntityTypes(entities []TextEntity) []string {
	seen := make(map[string]struct{})
	var types []string
	for _, e := range entities {
		if e.Type == EntityTypePlain || e.Type == "" {
			continue
		}
		if _, ok := seen[e.Type]; ok {
			continue
		}
		seen[e.Type] = struct{}{}
		types = append(types, e.Type)
	}
	sort.Strings(types)
	return types
}
