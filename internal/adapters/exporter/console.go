package exporter

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"telegram-chat-stats/internal/domain"
	"telegram-chat-stats/internal/ports"
)

const (
	dateLayout     = "2006-01-02"
	replyCycleMark = "цикл"
)

// ConsoleOption — функциональная опция для настройки ConsoleExporter.
type ConsoleOption func(*ConsoleExporter)

// WithMaxColumnWidth ограничивает ширину колонок таблиц.
func WithMaxColumnWidth(n int) ConsoleOption {
	return func(e *ConsoleExporter) {
		if n > 0 {
			e.maxWidth = n
		}
	}
}

// WithTimeline включает в вывод таблицу динамики сообщений.
func WithTimeline(enabled bool) ConsoleOption {
	return func(e *ConsoleExporter) {
		e.timeline = enabled
	}
}

// WithTimelineOnly оставляет в выводе только заголовок и динамику сообщений.
func WithTimelineOnly() ConsoleOption {
	return func(e *ConsoleExporter) {
		e.timeline = true
		e.timelineOnly = true
	}
}

type section struct {
	name  string
	table *table
}

// ConsoleExporter реализует интерфейс Exporter для вывода отчета в виде таблиц.
type ConsoleExporter struct {
	w            io.Writer
	maxWidth     int
	timeline     bool
	timelineOnly bool

	title   lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
}

// NewConsoleExporter создает новый экземпляр ConsoleExporter.
// Цвета включаются, только если w — терминал.
func NewConsoleExporter(w io.Writer, opts ...ConsoleOption) ports.Exporter {
	r := lipgloss.NewRenderer(w)
	e := &ConsoleExporter{
		w:        w,
		maxWidth: 40,
		title:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		heading:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		muted:    r.NewStyle().Foreground(lipgloss.Color("241")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export выводит отчет по разделам.
func (e *ConsoleExporter) Export(report *domain.Report) error {
	if report == nil {
		return fmt.Errorf("пустой отчет")
	}

	var sb strings.Builder
	sb.WriteString(e.title.Render("Переписка: "+report.Self) + "\n")
	sb.WriteString(e.muted.Render(fmt.Sprintf("Чатов: %d, сформирован %s", len(report.Chats), report.GeneratedAt.Format(time.RFC3339))) + "\n")

	var sections []section
	if !e.timelineOnly {
		sections = []section{
			{"Чаты", e.chatsTable(report)},
			{"Сообщения", e.countsTable(report)},
			{"Длина сообщений, символов", e.summaryTable(report.Lengths, formatNumber)},
			{"Ожидание ответа", e.summaryTable(report.Waits, formatSeconds)},
			{"Реакции", e.reactionsTable(report)},
			{"Активность по часам", e.hoursTable(report)},
		}
	}
	if e.timeline {
		sections = append(sections, section{"Динамика (" + report.Options.GroupBy + ")", e.timelineTable(report)})
	}

	if _, err := io.WriteString(e.w, sb.String()); err != nil {
		return err
	}
	for _, s := range sections {
		if _, err := fmt.Fprintf(e.w, "\n%s\n", e.heading.Render(s.name)); err != nil {
			return err
		}
		if len(s.table.rows) == 0 {
			if _, err := fmt.Fprintln(e.w, e.muted.Render("нет данных")); err != nil {
				return err
			}
			continue
		}
		if err := s.table.render(e.w); err != nil {
			return err
		}
	}

	if e.timelineOnly {
		return nil
	}
	return e.writeThread(report.LongestThread)
}

func (e *ConsoleExporter) newTable(headers ...string) *table {
	return &table{headers: headers, maxWidth: e.maxWidth}
}

func (e *ConsoleExporter) chatsTable(report *domain.Report) *table {
	t := e.newTable("Чат", "Сообщений", "Правок", "Первое", "Последнее", "Цепочек", "Макс. цепочка", "Другое")
	for _, c := range report.Chats {
		first, last := "", ""
		if !c.FirstMessageAt.IsZero() {
			first, last = c.FirstMessageAt.Format(dateLayout), c.LastMessageAt.Format(dateLayout)
		}
		chains, longest := replyChainCells(c)
		t.add(
			c.Name,
			humanize.Comma(int64(c.Messages)),
			humanize.Comma(int64(c.Edited)),
			first,
			last,
			chains,
			longest,
			formatContentTypes(c.OtherContentTypes),
		)
	}
	return t
}

func (e *ConsoleExporter) countsTable(report *domain.Report) *table {
	t := e.newTable("Чат", "Всего", "Вы", "Собеседник", "Доля, %", "Ваша доля, %")
	for _, c := range report.Counts {
		t.add(
			c.Name,
			humanize.Comma(int64(c.Total)),
			humanize.Comma(int64(c.Self)),
			humanize.Comma(int64(c.Other)),
			humanize.FormatFloat("#,###.#", c.Percent),
			humanize.FormatFloat("#,###.#", c.SelfPercent),
		)
	}
	return t
}

func (e *ConsoleExporter) summaryTable(rows []domain.SummaryRow, format func(float64) string) *table {
	t := e.newTable("Чат", "Отправитель", "N", "Медиана", "±")
	for _, r := range rows {
		t.add(r.Name, r.Sender, humanize.Comma(int64(r.N)), format(r.Median), format(r.StdErr))
	}
	return t
}

func (e *ConsoleExporter) reactionsTable(report *domain.Report) *table {
	t := e.newTable("Чат", "Ваши", "Собеседника")
	for _, r := range report.Reactions {
		if len(r.Self) == 0 && len(r.Other) == 0 {
			continue
		}
		t.add(r.Name, formatEmoji(r.Self), formatEmoji(r.Other))
	}
	return t
}

func (e *ConsoleExporter) hoursTable(report *domain.Report) *table {
	t := e.newTable("Чат", "0       8       16      23", "Пик")
	for _, h := range report.Hours {
		t.add(h.Name, sparkline(h.Bins[:]), fmt.Sprintf("%02d:00", peakHour(h.Bins)))
	}
	return t
}

func (e *ConsoleExporter) timelineTable(report *domain.Report) *table {
	headers := []string{"Период"}
	index := make(map[time.Time]int)
	var periods []time.Time
	for _, s := range report.Timeline {
		headers = append(headers, s.Name)
		for _, x := range s.X {
			if _, ok := index[x]; !ok {
				index[x] = 0
				periods = append(periods, x)
			}
		}
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	for i, p := range periods {
		index[p] = i
	}

	values := make([][]int, len(periods))
	for i := range values {
		values[i] = make([]int, len(report.Timeline))
	}
	for col, s := range report.Timeline {
		for i, x := range s.X {
			values[index[x]][col] = s.Y[i]
		}
	}

	t := e.newTable(headers...)
	for i, p := range periods {
		row := []string{p.Format(dateLayout)}
		for _, v := range values[i] {
			row = append(row, humanize.Comma(int64(v)))
		}
		t.add(row...)
	}
	return t
}

func (e *ConsoleExporter) writeThread(thread *domain.ReplyThread) error {
	if thread == nil {
		return nil
	}
	if _, err := fmt.Fprintf(e.w, "\n%s\n", e.heading.Render(fmt.Sprintf("Самая длинная цепочка ответов (%d)", len(thread.Messages)))); err != nil {
		return err
	}
	for _, m := range thread.Messages {
		line := fmt.Sprintf("%s %s: %s", m.Date.Format("2006-01-02 15:04"), m.From, firstLine(m.Text))
		for _, l := range wrapString(line, e.maxWidth*2) {
			if _, err := fmt.Fprintln(e.w, l); err != nil {
				return err
			}
		}
	}
	return nil
}

// replyChainCells показывает пометку вместо чисел, если в чате цикл ответов.
func replyChainCells(c domain.ChatOverview) (chains, longest string) {
	if c.ReplyChainsError != "" {
		return replyCycleMark, replyCycleMark
	}
	return humanize.Comma(int64(c.ReplyChains)), humanize.Comma(int64(c.LongestReplyChain))
}

func formatNumber(v float64) string {
	return humanize.FormatFloat("#,###.#", v)
}

func formatSeconds(v float64) string {
	return time.Duration(v * float64(time.Second)).Round(time.Second).String()
}

func formatEmoji(items []domain.EmojiCount) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s×%d", it.Emoji, it.Count))
	}
	return strings.Join(parts, " ")
}

func formatContentTypes(types map[string]int) string {
	keys := make([]string, 0, len(types))
	for k := range types {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, types[k]))
	}
	return strings.Join(parts, " ")
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// sparkline рисует значения одной строкой, масштабируя по максимуму.
func sparkline(values []float64) string {
	maxV := 0.0
	for _, v := range values {
		maxV = math.Max(maxV, v)
	}
	var sb strings.Builder
	for _, v := range values {
		if maxV == 0 || v == 0 {
			sb.WriteRune(' ')
			continue
		}
		i := int(math.Ceil(v/maxV*float64(len(sparks)))) - 1
		sb.WriteRune(sparks[max(i, 0)])
	}
	return sb.String()
}

func peakHour(bins [24]float64) int {
	peak := 0
	for h, v := range bins {
		if v > bins[peak] {
			peak = h
		}
	}
	return peak
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
