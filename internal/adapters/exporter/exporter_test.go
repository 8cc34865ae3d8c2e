package exporter

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"telegram-chat-stats/internal/domain"
)

var t0 = time.Date(2024, 11, 17, 21, 22, 41, 0, time.UTC)

func sampleReport() *domain.Report {
	nov := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	dec := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	var hours [24]float64
	hours[21] = 3
	hours[9] = 1

	return &domain.Report{
		Self:        "Alina",
		GeneratedAt: t0,
		Options:     domain.ReportOptions{GroupBy: "month", TopReactions: 5},
		Chats: []domain.ChatOverview{{
			ChatID: "airat", Name: "Airat", Messages: 12345, Edited: 2,
			FirstMessageAt: t0, LastMessageAt: t0.Add(48 * time.Hour),
			ReplyChains: 1, LongestReplyChain: 3,
			OtherContentTypes: map[string]int{"link": 2, "bold": 1},
		}},
		Counts: []domain.ChatCountRow{{ChatID: "airat", Name: "Airat", Total: 12345, Self: 6000, Other: 6345, Percent: 100, SelfPercent: 48.6}},
		Lengths: []domain.SummaryRow{
			{ChatID: "airat", Name: "Airat", Role: "self", Sender: "Alina", N: 3, Median: 6, StdErr: 2.83},
		},
		Waits: []domain.SummaryRow{
			{ChatID: "airat", Name: "Airat", Role: "other", Sender: "Airat", N: 2, Median: 90, StdErr: 3},
		},
		Hours: []domain.HourRow{{ChatID: "airat", Name: "Airat", Bins: hours}},
		Reactions: []domain.ReactionRow{{
			ChatID: "airat", Name: "Airat",
			Self:  []domain.EmojiCount{{Emoji: "❤", Count: 4}},
			Other: []domain.EmojiCount{{Emoji: "😂", Count: 2}, {Emoji: "👍", Count: 1}},
		}},
		Timeline: []domain.TimelineSeries{{ChatID: "airat", Name: "Airat", X: []time.Time{nov, dec}, Y: []int{10, 20}}},
		LongestThread: &domain.ReplyThread{ChatID: "airat", Messages: []domain.ThreadEntry{
			{ID: 3, From: "Alina", Date: t0.Add(time.Minute), Text: "как дела\nвторая строка"},
			{ID: 2, From: "Airat", Date: t0, Text: "привет"},
		}},
	}
}

func TestConsoleExporter(t *testing.T) {
	t.Run("выводит все разделы", func(t *testing.T) {
		var buf bytes.Buffer
		err := NewConsoleExporter(&buf, WithTimeline(true)).Export(sampleReport())
		require.NoError(t, err)

		out := buf.String()
		for _, want := range []string{
			"Переписка: Alina",
			"Чаты", "Сообщения", "Ожидание ответа", "Реакции", "Активность по часам", "Динамика (month)",
			"12,345", "48.6", "bold:1 link:2",
			"1m30s", "❤×4", "😂×2 👍×1", "21:00",
			"2024-11-01", "2024-12-01",
			"Самая длинная цепочка ответов (2)", "как дела …",
		} {
			assert.Contains(t, out, want)
		}
		assert.NotContains(t, out, "вторая строка")
		// вывод в буфер идет без ANSI-последовательностей
		assert.NotContains(t, out, "\x1b[")
	})

	t.Run("без динамики по умолчанию", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewConsoleExporter(&buf).Export(sampleReport()))
		assert.NotContains(t, buf.String(), "Динамика")
	})

	t.Run("цикл ответов вместо чисел", func(t *testing.T) {
		report := sampleReport()
		report.Chats[0].ReplyChains = -1
		report.Chats[0].LongestReplyChain = 0
		report.Chats[0].ReplyChainsError = "reply chain contains a cycle"

		var buf bytes.Buffer
		require.NoError(t, NewConsoleExporter(&buf).Export(report))
		assert.Contains(t, buf.String(), "цикл")
		assert.NotContains(t, buf.String(), "  -1  ")
	})

	t.Run("только динамика", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewConsoleExporter(&buf, WithTimelineOnly()).Export(sampleReport()))
		out := buf.String()
		assert.Contains(t, out, "Динамика (month)")
		assert.NotContains(t, out, "Реакции")
		assert.NotContains(t, out, "Самая длинная цепочка")
	})

	t.Run("пустые разделы", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewConsoleExporter(&buf).Export(&domain.Report{Self: "Alina"}))
		assert.Contains(t, buf.String(), "нет данных")
	})

	t.Run("nil отчет", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, NewConsoleExporter(&buf).Export(nil))
	})
}

func TestTable(t *testing.T) {
	tbl := &table{headers: []string{"Чат", "N"}}
	tbl.add("Airat", "1")
	tbl.add("日本", "22")

	var buf bytes.Buffer
	require.NoError(t, tbl.render(&buf))

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Equal(t, "Чат    N", string(lines[0]))
	assert.Equal(t, "-----  --", string(lines[1]))
	assert.Equal(t, "Airat  1", string(lines[2]))
	// CJK-строка получает дополнительный пробел
	assert.Equal(t, "日本    22", string(lines[3]))
}

func TestWrapString(t *testing.T) {
	assert.Equal(t, []string{"короткая"}, wrapString("короткая", 20))
	assert.Equal(t, []string{"один два", "три"}, wrapString("один два три", 8))
	assert.Equal(t, []string{"abcd", "ef"}, wrapString("abcdef", 4))
	assert.Equal(t, []string{""}, wrapString("     ", 2))
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, " ▄█", sparkline([]float64{0, 1, 2}))
	assert.Equal(t, "   ", sparkline([]float64{0, 0, 0}))
}

func TestExcelExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExcelExporter(&buf).Export(sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, SheetNames(), f.GetSheetList())

	name, err := f.GetCellValue(SheetChats, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Airat", name)

	messages, err := f.GetCellValue(SheetCounts, "B2")
	require.NoError(t, err)
	assert.Equal(t, "12345", messages)

	rows, err := f.GetRows(SheetTimeline)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = f.GetRows(SheetReactions)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Airat", "other", "😂", "2"}, rows[2])
}

func TestJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONExporter(&buf, true).Export(sampleReport()))

	var decoded domain.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Alina", decoded.Self)
	assert.Equal(t, 12345, decoded.Chats[0].Messages)
}

func TestExcelExporter_ReplyCycle(t *testing.T) {
	report := sampleReport()
	report.Chats[0].ReplyChains = -1
	report.Chats[0].ReplyChainsError = "reply chain contains a cycle"

	var buf bytes.Buffer
	require.NoError(t, NewExcelExporter(&buf).Export(report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(SheetChats, "G2")
	require.NoError(t, err)
	assert.Equal(t, "цикл", v)
}
