// Package chats объединяет несколько личных переписок одного владельца экспорта
// и строит сравнительные агрегаты между ними.
package chats

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"telegram-chat-stats/internal/core/chat"
	"telegram-chat-stats/internal/core/stats"
	"telegram-chat-stats/internal/domain"
)

// Role обозначает сторону переписки относительно владельца экспорта.
type Role string

const (
	RoleSelf  Role = "self"
	RoleOther Role = "other"
)

// Chats — коллекция чатов с единым владельцем, упорядоченная по убыванию числа сообщений.
type Chats struct {
	Self  string
	order []*chat.Chat
	byID  map[string]*chat.Chat
}

// New проверяет, что у всех чатов один и тот же владелец, и упорядочивает их.
// При равном числе сообщений сохраняется исходный порядок.
func New(list ...*chat.Chat) (*Chats, error) {
	c := &Chats{byID: make(map[string]*chat.Chat, len(list))}
	for _, ch := range list {
		if _, exists := c.byID[ch.ID]; exists {
			return nil, fmt.Errorf("чат %s: %w", ch.ID, domain.ErrDuplicateChat)
		}
		if c.Self == "" {
			c.Self = ch.Self
		} else if ch.Self != c.Self {
			return nil, fmt.Errorf("чат %s принадлежит %q, ожидался %q: %w", ch.ID, ch.Self, c.Self, domain.ErrSelfMismatch)
		}
		c.byID[ch.ID] = ch
		c.order = append(c.order, ch)
	}

	sort.SliceStable(c.order, func(i, j int) bool {
		return c.order[i].Len() > c.order[j].Len()
	})
	return c, nil
}

// All возвращает чаты в порядке отображения.
func (c *Chats) All() []*chat.Chat {
	return c.order
}

// Get возвращает чат по идентификатору.
func (c *Chats) Get(id string) (*chat.Chat, bool) {
	ch, ok := c.byID[id]
	return ch, ok
}

// Len возвращает количество чатов.
func (c *Chats) Len() int {
	return len(c.order)
}

// CountOptions задает фильтр и разбивку для MessageCounts.
type CountOptions struct {
	Include       chat.Matcher
	SplitBySender bool
}

type ChatCount struct {
	ChatID string `json:"chat_id"`
	Name   string `json:"name"`
	Total  int    `json:"total"`
	Self   int    `json:"self"`
	Other  int    `json:"other"`
	// Percent: доля чата среди всех подсчитанных сообщений коллекции, в процентах.
	Percent float64 `json:"percent"`
	// SelfPercent: доля сообщений владельца внутри чата, в процентах.
	SelfPercent float64 `json:"self_percent"`
}

// MessageCounts считает сообщения по чатам с учетом фильтра.
func (c *Chats) MessageCounts(opts CountOptions) []ChatCount {
	counts := make([]ChatCount, 0, len(c.order))
	sum := 0
	for _, ch := range c.order {
		selfN, otherN := ch.CountBySender(opts.Include)
		cc := ChatCount{ChatID: ch.ID, Name: ch.Name, Total: selfN + otherN}
		if opts.SplitBySender {
			cc.Self, cc.Other = selfN, otherN
			if cc.Total > 0 {
				cc.SelfPercent = percent(selfN, cc.Total)
			}
		}
		sum += cc.Total
		counts = append(counts, cc)
	}
	if sum > 0 {
		for i := range counts {
			counts[i].Percent = percent(counts[i].Total, sum)
		}
	}
	return counts
}

// RoleSummary — медиана с погрешностью для одной стороны одного чата.
type RoleSummary struct {
	ChatID string `json:"chat_id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Sender string `json:"sender"`
	stats.Summary
}

// MessageLengths возвращает медианные длины сообщений по чатам и сторонам.
// Сторона без непустых сообщений пропускается.
func (c *Chats) MessageLengths() []RoleSummary {
	var out []RoleSummary
	for _, ch := range c.order {
		lengths := ch.MessageLengthsBySender()
		for _, role := range []Role{RoleSelf, RoleOther} {
			sender := senderFor(ch, role)
			s, err := stats.Summarize(stats.Floats(lengths[sender]))
			if errors.Is(err, domain.ErrNoData) {
				continue
			}
			out = append(out, RoleSummary{ChatID: ch.ID, Name: ch.Name, Role: role, Sender: sender, Summary: s})
		}
	}
	return out
}

// WaitingTimes возвращает медианное время ожидания ответа (в секундах) по чатам и сторонам.
// Записи, чья медиана больше threshold, исключаются целиком; threshold <= 0 отключает отбор.
func (c *Chats) WaitingTimes(threshold time.Duration) []RoleSummary {
	var out []RoleSummary
	for _, ch := range c.order {
		waits := ch.WaitingTimesBySender()
		for _, role := range []Role{RoleSelf, RoleOther} {
			sender := senderFor(ch, role)
			s, err := stats.Summarize(waits[sender])
			if errors.Is(err, domain.ErrNoData) {
				continue
			}
			if threshold > 0 && s.Median > threshold.Seconds() {
				continue
			}
			out = append(out, RoleSummary{ChatID: ch.ID, Name: ch.Name, Role: role, Sender: sender, Summary: s})
		}
	}
	return out
}

type HourHistogram struct {
	ChatID string      `json:"chat_id"`
	Name   string      `json:"name"`
	Bins   [24]float64 `json:"bins"`
}

// HourHistograms возвращает по гистограмме на чат. При normalize значения —
// доли от числа сообщений чата.
func (c *Chats) HourHistograms(normalize bool) []HourHistogram {
	out := make([]HourHistogram, 0, len(c.order))
	for _, ch := range c.order {
		h := HourHistogram{ChatID: ch.ID, Name: ch.Name}
		counts := ch.HourHistogram()
		for hour, n := range counts {
			h.Bins[hour] = float64(n)
			if normalize && ch.Len() > 0 {
				h.Bins[hour] /= float64(ch.Len())
			}
		}
		out = append(out, h)
	}
	return out
}

// ReactionTop — самые частые реакции каждой стороны в чате.
type ReactionTop struct {
	ChatID string            `json:"chat_id"`
	Name   string            `json:"name"`
	Self   []stats.CountItem `json:"self"`
	Other  []stats.CountItem `json:"other"`
}

// TopReactions возвращает n самых частых эмодзи владельца и собеседника в каждом чате.
func (c *Chats) TopReactions(n int) []ReactionTop {
	out := make([]ReactionTop, 0, len(c.order))
	for _, ch := range c.order {
		selfCounter, otherCounter := ch.ReactionCounters()
		out = append(out, ReactionTop{
			ChatID: ch.ID,
			Name:   ch.Name,
			Self:   selfCounter.MostCommon(n),
			Other:  otherCounter.MostCommon(n),
		})
	}
	return out
}

// Traces возвращает временной ряд числа сообщений для каждого чата.
func (c *Chats) Traces(key chat.GroupKey, include chat.Matcher) []chat.Series {
	out := make([]chat.Series, 0, len(c.order))
	for _, ch := range c.order {
		out = append(out, ch.TraceMessagesBy(key, include))
	}
	return out
}

func senderFor(ch *chat.Chat, role Role) string {
	if role == RoleSelf {
		return ch.Self
	}
	return ch.Name
}

func percent(part, whole int) float64 {
	return float64(part) / float64(whole) * 100
}
