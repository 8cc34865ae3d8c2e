// Package replies восстанавливает граф ответов из плоского списка записей экспорта.
package replies

import (
	"fmt"
	"log/slog"

	"telegram-chat-stats/internal/domain"
)

// Option — функциональная опция для настройки Resolver.
type Option func(*Resolver)

// WithLogger устанавливает логгер для резолвера.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// Resolver разбирает записи одного чата и связывает ответы с исходными сообщениями.
// Не хранит состояние между вызовами и безопасен для одновременного использования.
type Resolver struct {
	log *slog.Logger
}

// NewResolver создает новый Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Index — сообщения одного чата, доступные по id, в порядке первого появления id в файле.
type Index struct {
	order    []int
	byID     map[int]*domain.Message
	dangling []int
}

// Resolve разбирает все записи типа "message" и проставляет ReplyTo.
//
// При совпадении id побеждает последняя запись, но позиция остается за первой.
// Ссылки на сообщения, которых нет в экспорте, не считаются ошибкой: ReplyToID
// сохраняется, ReplyTo остается nil.
func (r *Resolver) Resolve(records []domain.ExportedMessage) (*Index, error) {
	idx := &Index{
		byID: make(map[int]*domain.Message, len(records)),
	}

	for _, record := range records {
		if !record.IsMessage() {
			continue
		}
		msg, err := domain.ParseMessage(record)
		if err != nil {
			return nil, err
		}
		if _, exists := idx.byID[msg.ID]; !exists {
			idx.order = append(idx.order, msg.ID)
		}
		idx.byID[msg.ID] = msg
	}

	for _, id := range idx.order {
		msg := idx.byID[id]
		if msg.ReplyToID == nil {
			continue
		}
		target, ok := idx.byID[*msg.ReplyToID]
		if !ok {
			idx.dangling = append(idx.dangling, msg.ID)
			r.log.Debug("Ответ на сообщение вне экспорта", "message_id", msg.ID, "reply_to", *msg.ReplyToID, "text", msg.Text)
			continue
		}
		msg.ReplyTo = target
	}

	if len(idx.dangling) > 0 {
		r.log.Debug("Ответы на сообщения вне экспорта оставлены без связи", "count", len(idx.dangling))
	}

	return idx, nil
}

// Messages возвращает сообщения в порядке появления в файле.
func (idx *Index) Messages() []*domain.Message {
	out := make([]*domain.Message, 0, len(idx.order))
	for _, id := range idx.order {
		out = append(out, idx.byID[id])
	}
	return out
}

// Get возвращает сообщение по id.
func (idx *Index) Get(id int) (*domain.Message, bool) {
	msg, ok := idx.byID[id]
	return msg, ok
}

// Len возвращает количество сообщений.
func (idx *Index) Len() int {
	return len(idx.order)
}

// Dangling возвращает id сообщений, чья ссылка на ответ не разрешилась.
func (idx *Index) Dangling() []int {
	return append([]int(nil), idx.dangling...)
}

// Chain возвращает цепочку [msg, ..., корень], идя по ReplyTo до сообщения без ответа.
// Повторное попадание в уже пройденный id означает цикл и возвращает ErrReplyCycle.
func Chain(msg *domain.Message) ([]*domain.Message, error) {
	visited := make(map[int]struct{})
	var chain []*domain.Message
	for cur := msg; cur != nil; cur = cur.ReplyTo {
		if _, seen := visited[cur.ID]; seen {
			return nil, fmt.Errorf("сообщение %d: %w", cur.ID, domain.ErrReplyCycle)
		}
		visited[cur.ID] = struct{}{}
		chain = append(chain, cur)
	}
	return chain, nil
}
