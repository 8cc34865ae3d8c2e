package domain

import "encoding/json"

// Типы записей и сущностей в файле экспорта Telegram.
const (
	ChatTypePersonal  = "personal_chat"
	RecordTypeMessage = "message"
	EntityTypePlain   = "plain"
	ReactionTypeEmoji = "emoji"
	ExportDateLayout  = "2006-01-02T15:04:05"
)

// ExportedChat представляет корневую структуру файла экспорта.
type ExportedChat struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Messages []ExportedMessage `json:"messages"`
}

// ExportedMessage представляет одну "сырую" запись из массива messages.
// Служебные записи (type != "message") тоже попадают сюда и отфильтровываются позже.
type ExportedMessage struct {
	ID               int                `json:"id"`
	Type             string             `json:"type"`
	Date             string             `json:"date"`
	Edited           string             `json:"edited,omitempty"`
	From             string             `json:"from"`
	FromID           string             `json:"from_id"`
	ReplyToMessageID *int               `json:"reply_to_message_id,omitempty"`
	Text             json.RawMessage    `json:"text"` // Может быть строкой или массивом
	TextEntities     []TextEntity       `json:"text_entities"`
	Reactions        []ExportedReaction `json:"reactions,omitempty"`
}

// IsMessage сообщает, является ли запись обычным сообщением.
func (m ExportedMessage) IsMessage() bool {
	return m.Type == RecordTypeMessage
}

// TextEntity представляет фрагмент текста (обычный текст, код, цитата, ссылка и т.д.).
type TextEntity struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ExportedReaction представляет реакцию на сообщение в том виде, в каком она лежит в экспорте.
type ExportedReaction struct {
	Type   string    `json:"type"`
	Count  int       `json:"count"`
	Emoji  string    `json:"emoji"`
	Recent []Reactor `json:"recent"`
}

// Reactor — один из последних поставивших реакцию.
type Reactor struct {
	From   string `json:"from"`
	FromID string `json:"from_id"`
	Date   string `json:"date"`
}

// Participant — уникальный отправитель сообщений в чате.
type Participant struct {
	// ID отправителя из поля from_id (например, 'user12345').
	ID string
	// Отображаемое имя из поля from.
	Name string
}
