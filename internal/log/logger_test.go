package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger(t *testing.T) {
	t.Run("json и уровень", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger("warn", "json", &buf)

		logger.Info("не попадет")
		logger.Warn("Chat loaded", "chat_id", "airat", "text", "секрет")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "Chat loaded", entry["msg"])
		assert.Equal(t, "airat", entry["chat_id"])
		assert.Equal(t, RedactedValue, entry["text"])
	})

	t.Run("текстовый формат", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger("debug", "text", &buf).Debug("Loading chat", "chat_id", "bob")
		assert.Contains(t, buf.String(), "level=DEBUG")
		assert.Contains(t, buf.String(), "chat_id=bob")
	})
}

func TestRedactHandler(t *testing.T) {
	t.Run("WithAttrs и группы", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(NewRedactHandler(slog.NewJSONHandler(&buf, nil), "text"))

		logger.With("text", "привет").Info("reply",
			slog.Group("message", slog.Int("id", 7), slog.String("text", "как дела")),
		)

		out := buf.String()
		assert.NotContains(t, out, "привет")
		assert.NotContains(t, out, "как дела")
		assert.Contains(t, out, `"id":7`)
	})

	t.Run("WithGroup сохраняет скрытие", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(NewRedactHandler(slog.NewJSONHandler(&buf, nil), "text"))

		logger.WithGroup("chat").Info("msg", "text", "секрет", "id", "bob")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		group := entry["chat"].(map[string]any)
		assert.Equal(t, RedactedValue, group["text"])
		assert.Equal(t, "bob", group["id"])
	})
}
