// Package chat содержит агрегаты по одной личной переписке.
package chat

import (
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"telegram-chat-stats/internal/core/replies"
	"telegram-chat-stats/internal/core/stats"
	"telegram-chat-stats/internal/domain"
)

// Option — функциональная опция для настройки создания чата.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger устанавливает логгер, который получит резолвер ответов.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Chat — личная переписка двух участников.
// После создания чат доступен только для чтения и безопасен для одновременного чтения.
type Chat struct {
	// Имя файла экспорта без расширения.
	ID string
	// Числовой id чата из экспорта.
	ExportID int64
	// Отображаемое имя собеседника.
	Name string
	// Имя владельца экспорта.
	Self         string
	Participants []domain.Participant

	messages []*domain.Message
	dangling int
}

// New проверяет форму чата, разбирает сообщения и связывает ответы.
func New(id string, exported *domain.ExportedChat, opts ...Option) (*Chat, error) {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if exported.Type != domain.ChatTypePersonal {
		return nil, fmt.Errorf("чат %s имеет тип %q: %w", id, exported.Type, domain.ErrUnsupportedChat)
	}

	participants := ExtractParticipants(exported)
	self, err := resolveSelf(exported.Name, participants)
	if err != nil {
		return nil, fmt.Errorf("чат %s: %w", id, err)
	}

	idx, err := replies.NewResolver(replies.WithLogger(o.log.With("chat_id", id))).Resolve(exported.Messages)
	if err != nil {
		return nil, fmt.Errorf("чат %s: %w", id, err)
	}

	return &Chat{
		ID:           id,
		ExportID:     exported.ID,
		Name:         exported.Name,
		Self:         self,
		Participants: participants,
		messages:     idx.Messages(),
		dangling:     len(idx.Dangling()),
	}, nil
}

func (c *Chat) String() string {
	return fmt.Sprintf("Chat(%s; %d messages)", c.Name, len(c.messages))
}

// Messages возвращает сообщения в порядке файла.
func (c *Chat) Messages() []*domain.Message {
	return c.messages
}

// Len возвращает количество сообщений.
func (c *Chat) Len() int {
	return len(c.messages)
}

// DanglingReplies возвращает количество ответов на сообщения вне экспорта.
func (c *Chat) DanglingReplies() int {
	return c.dangling
}

// IsSelf сообщает, отправлено ли сообщение владельцем экспорта.
func (c *Chat) IsSelf(msg *domain.Message) bool {
	return msg.From == c.Self
}

// GroupBy раскладывает сообщения по дням, неделям или месяцам.
func (c *Chat) GroupBy(key GroupKey) []Bucket {
	return groupMessages(c.messages, key)
}

// MessageLengthsBySender возвращает длины (в символах) непустых сообщений каждого отправителя.
func (c *Chat) MessageLengthsBySender() map[string][]int {
	lengths := make(map[string][]int)
	for _, msg := range c.messages {
		if msg.Text == "" {
			continue
		}
		lengths[msg.From] = append(lengths[msg.From], utf8.RuneCountInString(msg.Text))
	}
	return lengths
}

// WaitingTimesBySender возвращает паузы в секундах между соседними сообщениями
// разных отправителей. Пауза записывается на отправителя более раннего сообщения:
// сколько он ждал ответа собеседника. Соседние сообщения одного отправителя пропускаются.
func (c *Chat) WaitingTimesBySender() map[string][]float64 {
	waits := make(map[string][]float64)
	for i := 1; i < len(c.messages); i++ {
		prev, cur := c.messages[i-1], c.messages[i]
		if prev.From == cur.From {
			continue
		}
		waits[prev.From] = append(waits[prev.From], cur.Date.Sub(prev.Date).Seconds())
	}
	return waits
}

// ReactionCounters считает эмодзи реакций, поставленных владельцем экспорта и собеседником.
func (c *Chat) ReactionCounters() (self, other stats.Counter) {
	self, other = stats.Counter{}, stats.Counter{}
	for _, msg := range c.messages {
		for _, r := range msg.Reactions {
			for _, e := range r.Events {
				if e.From == c.Self {
					self.Add(r.Emoji)
				} else {
					other.Add(r.Emoji)
				}
			}
		}
	}
	return self, other
}

// OtherContentTypeCounts считает, в скольких сообщениях встречается каждый тип
// фрагментов кроме обычного текста.
func (c *Chat) OtherContentTypeCounts() stats.Counter {
	counts := stats.Counter{}
	for _, msg := range c.messages {
		for _, t := range msg.OtherEntityTypes {
			counts.Add(t)
		}
	}
	return counts
}

// ReplyChains возвращает все цепочки ответов длиной от двух сообщений.
// Сообщения обходятся с конца списка.
func (c *Chat) ReplyChains() ([][]*domain.Message, error) {
	var chains [][]*domain.Message
	for i := len(c.messages) - 1; i >= 0; i-- {
		chain, err := replies.Chain(c.messages[i])
		if err != nil {
			return nil, fmt.Errorf("чат %s: %w", c.ID, err)
		}
		if len(chain) > 1 {
			chains = append(chains, chain)
		}
	}
	return chains, nil
}

// LongestReplyChain возвращает самую длинную цепочку; при равенстве — первую при обходе с конца.
func (c *Chat) LongestReplyChain() ([]*domain.Message, error) {
	chains, err := c.ReplyChains()
	if err != nil {
		return nil, err
	}
	longest := LongestOf(chains)
	if longest == nil {
		return nil, fmt.Errorf("чат %s без цепочек ответов: %w", c.ID, domain.ErrNoData)
	}
	return longest, nil
}

// LongestOf выбирает самую длинную цепочку из результата ReplyChains,
// при равной длине первую в списке.
func LongestOf(chains [][]*domain.Message) []*domain.Message {
	var longest []*domain.Message
	for _, chain := range chains {
		if len(chain) > len(longest) {
			longest = chain
		}
	}
	return longest
}

// TraceMessagesBy возвращает число подходящих под фильтр сообщений в каждой корзине.
func (c *Chat) TraceMessagesBy(key GroupKey, include Matcher) Series {
	series := Series{Name: c.Name}
	for _, b := range c.GroupBy(key) {
		n := 0
		for _, msg := range b.Messages {
			if include.Match(msg.Text) {
				n++
			}
		}
		series.X = append(series.X, b.Start)
		series.Y = append(series.Y, n)
	}
	return series
}

// CountBySender возвращает количество подходящих под фильтр сообщений владельца и собеседника.
func (c *Chat) CountBySender(include Matcher) (self, other int) {
	for _, msg := range c.messages {
		if !include.Match(msg.Text) {
			continue
		}
		if c.IsSelf(msg) {
			self++
		} else {
			other++
		}
	}
	return self, other
}

// HourHistogram возвращает количество сообщений по часам суток.
func (c *Chat) HourHistogram() [24]int {
	var hours [24]int
	for _, msg := range c.messages {
		hours[msg.Date.Hour()]++
	}
	return hours
}

// EditedCount возвращает количество отредактированных сообщений.
func (c *Chat) EditedCount() int {
	n := 0
	for _, msg := range c.messages {
		if msg.IsEdited() {
			n++
		}
	}
	return n
}

// Span возвращает время первого и последнего сообщения.
func (c *Chat) Span() (first, last time.Time, err error) {
	if len(c.messages) == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("чат %s пуст: %w", c.ID, domain.ErrNoData)
	}
	first, last = c.messages[0].Date, c.messages[0].Date
	for _, msg := range c.messages[1:] {
		if msg.Date.Before(first) {
			first = msg.Date
		}
		if msg.Date.After(last) {
			last = msg.Date
		}
	}
	return first, last, nil
}
