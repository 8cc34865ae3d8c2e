package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-chat-stats/internal/adapters/parser"
	"telegram-chat-stats/internal/adapters/source"
	"telegram-chat-stats/internal/core/chats"
	"telegram-chat-stats/internal/domain"
	"telegram-chat-stats/internal/ports"
)

func loadSample(t *testing.T) *chats.Chats {
	t.Helper()
	collection, err := NewLoader(parser.NewJsonParser()).Load(context.Background(), []ports.DataSource{
		source.NewMemorySource("airat", airatJSON(t)),
		source.NewMemorySource("bob", bobJSON(t)),
	})
	require.NoError(t, err)
	return collection
}

func TestReportBuilder_Build(t *testing.T) {
	generated := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	builder := NewReportBuilder(WithClock(func() time.Time { return generated }))
	collection := loadSample(t)

	t.Run("значения по умолчанию", func(t *testing.T) {
		report, err := builder.Build(collection, domain.ReportOptions{})
		require.NoError(t, err)

		assert.Equal(t, owner, report.Self)
		assert.Equal(t, generated, report.GeneratedAt)
		assert.Equal(t, "month", report.Options.GroupBy)
		assert.Equal(t, DefaultTopReactions, report.Options.TopReactions)

		require.Len(t, report.Chats, 2)
		airat := report.Chats[0]
		assert.Equal(t, "airat", airat.ChatID)
		assert.Equal(t, 4, airat.Messages)
		assert.Equal(t, 2, airat.ReplyChains)
		assert.Equal(t, 3, airat.LongestReplyChain)
		assert.Equal(t, t0, airat.FirstMessageAt)
		assert.Equal(t, t0.Add(2*time.Hour), airat.LastMessageAt)

		bob := report.Chats[1]
		assert.Zero(t, bob.ReplyChains)
		assert.Zero(t, bob.LongestReplyChain)

		require.NotNil(t, report.LongestThread)
		assert.Equal(t, "airat", report.LongestThread.ChatID)
		ids := make([]int, 0, len(report.LongestThread.Messages))
		for _, m := range report.LongestThread.Messages {
			ids = append(ids, m.ID)
		}
		assert.Equal(t, []int{3, 2, 1}, ids)

		require.Len(t, report.Counts, 2)
		assert.Equal(t, domain.ChatCountRow{
			ChatID: "airat", Name: "Airat", Total: 4, Self: 2, Other: 2,
			Percent: 4.0 / 6 * 100, SelfPercent: 50,
		}, report.Counts[0])

		require.Len(t, report.Timeline, 2)
		nov := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, domain.TimelineSeries{ChatID: "airat", Name: "Airat", X: []time.Time{nov}, Y: []int{4}}, report.Timeline[0])
		assert.Equal(t, []int{2}, report.Timeline[1].Y)

		require.Len(t, report.Waits, 3)
		assert.Equal(t, "self", report.Waits[0].Role)
		assert.Equal(t, (30.0+7110.0)/2, report.Waits[0].Median)
		assert.Equal(t, 60.0, report.Waits[1].Median)
		assert.Equal(t, 86400.0, report.Waits[2].Median)

		require.Len(t, report.Hours, 2)
		assert.Equal(t, 3.0, report.Hours[0].Bins[21])
	})

	t.Run("фильтр, порог и недельная группировка", func(t *testing.T) {
		report, err := builder.Build(collection, domain.ReportOptions{
			GroupBy:        "week",
			Include:        []string{"Привет"},
			WaitThreshold:  time.Hour,
			NormalizeHours: true,
		})
		require.NoError(t, err)

		assert.Equal(t, 2, report.Counts[0].Total)
		assert.Equal(t, 100.0, report.Counts[0].Percent)
		assert.Zero(t, report.Counts[1].Total)

		// 17.11.2024 — воскресенье, 18.11 начинает новую неделю
		assert.Equal(t, []int{0, 0}, report.Timeline[1].Y)
		assert.Equal(t, []int{2}, report.Timeline[0].Y)

		// медиана ожидания в чате с Bob — сутки, запись отброшена
		require.Len(t, report.Waits, 2)
		for _, w := range report.Waits {
			assert.Equal(t, "airat", w.ChatID)
		}

		assert.InDelta(t, 0.75, report.Hours[0].Bins[21], 1e-9)
	})

	t.Run("цикл ответов не мешает остальным разделам", func(t *testing.T) {
		carl := exportJSON(t, "Carl",
			line{from: owner, offset: 0, text: "первое", replyTo: 2},
			line{from: "Carl", offset: 30 * time.Second, text: "второе", replyTo: 1},
		)
		withCycle, err := NewLoader(parser.NewJsonParser()).Load(context.Background(), []ports.DataSource{
			source.NewMemorySource("airat", airatJSON(t)),
			source.NewMemorySource("carl", carl),
		})
		require.NoError(t, err)

		report, err := builder.Build(withCycle, domain.ReportOptions{})
		require.NoError(t, err)
		require.Len(t, report.Chats, 2)

		cycled := report.Chats[1]
		assert.Equal(t, "carl", cycled.ChatID)
		assert.Equal(t, -1, cycled.ReplyChains)
		assert.Zero(t, cycled.LongestReplyChain)
		assert.Contains(t, cycled.ReplyChainsError, domain.ErrReplyCycle.Error())
		assert.Equal(t, 2, cycled.Messages)

		assert.Equal(t, 2, report.Chats[0].ReplyChains)
		require.NotNil(t, report.LongestThread)
		assert.Equal(t, "airat", report.LongestThread.ChatID)

		assert.Len(t, report.Counts, 2)
		assert.Len(t, report.Hours, 2)
		assert.Len(t, report.Timeline, 2)
		assert.Len(t, report.Reactions, 2)

		var carlLengths, carlWaits int
		for _, row := range report.Lengths {
			if row.ChatID == "carl" {
				carlLengths++
			}
		}
		for _, row := range report.Waits {
			if row.ChatID == "carl" {
				carlWaits++
			}
		}
		assert.Equal(t, 2, carlLengths)
		assert.Equal(t, 1, carlWaits)
	})

	t.Run("неизвестная группировка", func(t *testing.T) {
		_, err := builder.Build(collection, domain.ReportOptions{GroupBy: "year"})
		assert.Error(t, err)
	})
}
