package services

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"telegram-chat-stats/internal/domain"
)

const owner = "Alina"

var t0 = time.Date(2024, 11, 17, 21, 0, 0, 0, time.UTC)

type line struct {
	from    string
	offset  time.Duration
	text    string
	replyTo int
}

// exportJSON собирает JSON экспорта личного чата с собеседником with.
func exportJSON(t *testing.T, with string, lines ...line) []byte {
	t.Helper()
	exported := domain.ExportedChat{Name: with, Type: domain.ChatTypePersonal, ID: int64(len(with))}
	for i, l := range lines {
		m := domain.ExportedMessage{
			ID:     i + 1,
			Type:   domain.RecordTypeMessage,
			Date:   t0.Add(l.offset).Format(domain.ExportDateLayout),
			From:   l.from,
			FromID: "user_" + l.from,
			Text:   json.RawMessage(fmt.Sprintf("%q", l.text)),
		}
		if l.replyTo > 0 {
			r := l.replyTo
			m.ReplyToMessageID = &r
		}
		exported.Messages = append(exported.Messages, m)
	}
	data, err := json.Marshal(exported)
	require.NoError(t, err)
	return data
}

func airatJSON(t *testing.T) []byte {
	return exportJSON(t, "Airat",
		line{from: owner, offset: 0, text: "привет"},
		line{from: "Airat", offset: 30 * time.Second, text: "привет!", replyTo: 1},
		line{from: owner, offset: 90 * time.Second, text: "как дела", replyTo: 2},
		line{from: "Airat", offset: 2 * time.Hour, text: "хорошо"},
	)
}

func bobJSON(t *testing.T) []byte {
	return exportJSON(t, "Bob",
		line{from: owner, offset: 0, text: "hi"},
		line{from: "Bob", offset: 24 * time.Hour, text: "hello"},
	)
}
