package log

import (
	"context"
	"log/slog"
)

// RedactedValue заменяет значение скрытого атрибута.
const RedactedValue = "***"

// DefaultRedactedKeys — атрибуты с текстом переписки.
var DefaultRedactedKeys = []string{"text"}

// RedactHandler - обертка для slog.Handler, которая скрывает значения
// атрибутов с заданными ключами, в том числе внутри групп.
type RedactHandler struct {
	handler slog.Handler
	keys    map[string]struct{}
}

// NewRedactHandler создает обработчик, скрывающий атрибуты keys.
func NewRedactHandler(handler slog.Handler, keys ...string) *RedactHandler {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return &RedactHandler{handler: handler, keys: set}
}

// Enabled реализует интерфейс slog.Handler
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle реализует интерфейс slog.Handler
func (h *RedactHandler) Handle(ctx context.Context, record slog.Record) error {
	// Clone копирует запись без атрибутов, поэтому они добавляются заново
	r := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		r.AddAttrs(h.redact(a))
		return true
	})
	return h.handler.Handle(ctx, r)
}

// WithAttrs реализует интерфейс slog.Handler
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redact(a)
	}
	return &RedactHandler{handler: h.handler.WithAttrs(redacted), keys: h.keys}
}

// WithGroup реализует интерфейс slog.Handler
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{handler: h.handler.WithGroup(name), keys: h.keys}
}

func (h *RedactHandler) redact(a slog.Attr) slog.Attr {
	if _, ok := h.keys[a.Key]; ok {
		return slog.String(a.Key, RedactedValue)
	}
	if a.Value.Kind() != slog.KindGroup {
		return a
	}
	group := a.Value.Group()
	redacted := make([]slog.Attr, len(group))
	for i, g := range group {
		redacted[i] = h.redact(g)
	}
	return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
}
