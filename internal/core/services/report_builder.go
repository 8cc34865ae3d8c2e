package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"telegram-chat-stats/internal/core/chat"
	"telegram-chat-stats/internal/core/chats"
	"telegram-chat-stats/internal/core/stats"
	"telegram-chat-stats/internal/domain"
)

// DefaultTopReactions — сколько эмодзи попадает в отчет, если не задано иное.
const DefaultTopReactions = 5

// ReportOption — функциональная опция для настройки ReportBuilder.
type ReportOption func(*ReportBuilder)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) ReportOption {
	return func(b *ReportBuilder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithReportLogger устанавливает логгер для построителя отчетов.
func WithReportLogger(l *slog.Logger) ReportOption {
	return func(b *ReportBuilder) {
		if l != nil {
			b.log = l
		}
	}
}

// ReportBuilder собирает из коллекции чатов готовый к выводу отчет.
type ReportBuilder struct {
	now func() time.Time
	log *slog.Logger
}

// NewReportBuilder создает новый ReportBuilder.
func NewReportBuilder(opts ...ReportOption) *ReportBuilder {
	b := &ReportBuilder{now: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build строит отчет по всем чатам коллекции.
func (b *ReportBuilder) Build(c *chats.Chats, opts domain.ReportOptions) (*domain.Report, error) {
	if opts.GroupBy == "" {
		opts.GroupBy = string(chat.Month)
	}
	key, err := chat.ParseGroupKey(opts.GroupBy)
	if err != nil {
		return nil, err
	}
	if opts.TopReactions <= 0 {
		opts.TopReactions = DefaultTopReactions
	}
	include := chat.NewMatcher(opts.Include...)

	report := &domain.Report{
		Self:        c.Self,
		GeneratedAt: b.now().UTC(),
		Options:     opts,
	}

	var longest []*domain.Message
	var longestChat string
	for _, ch := range c.All() {
		overview, chain, err := b.overview(ch)
		if err != nil {
			return nil, err
		}
		report.Chats = append(report.Chats, overview)
		if len(chain) > len(longest) {
			longest, longestChat = chain, ch.ID
		}
	}
	if longest != nil {
		report.LongestThread = threadOf(longestChat, longest)
	}

	for _, cc := range c.MessageCounts(chats.CountOptions{Include: include, SplitBySender: true}) {
		report.Counts = append(report.Counts, domain.ChatCountRow{
			ChatID:      cc.ChatID,
			Name:        cc.Name,
			Total:       cc.Total,
			Self:        cc.Self,
			Other:       cc.Other,
			Percent:     cc.Percent,
			SelfPercent: cc.SelfPercent,
		})
	}

	report.Lengths = summaryRows(c.MessageLengths())
	report.Waits = summaryRows(c.WaitingTimes(opts.WaitThreshold))

	for _, h := range c.HourHistograms(opts.NormalizeHours) {
		report.Hours = append(report.Hours, domain.HourRow{ChatID: h.ChatID, Name: h.Name, Bins: h.Bins})
	}

	for _, r := range c.TopReactions(opts.TopReactions) {
		report.Reactions = append(report.Reactions, domain.ReactionRow{
			ChatID: r.ChatID,
			Name:   r.Name,
			Self:   emojiCounts(r.Self),
			Other:  emojiCounts(r.Other),
		})
	}

	for i, s := range c.Traces(key, include) {
		report.Timeline = append(report.Timeline, domain.TimelineSeries{
			ChatID: c.All()[i].ID,
			Name:   s.Name,
			X:      s.X,
			Y:      s.Y,
		})
	}

	b.log.Debug("Report built", "self", report.Self, "chats", len(report.Chats), "group_by", opts.GroupBy)
	return report, nil
}

func (b *ReportBuilder) overview(ch *chat.Chat) (domain.ChatOverview, []*domain.Message, error) {
	o := domain.ChatOverview{
		ChatID:          ch.ID,
		ExportID:        ch.ExportID,
		Name:            ch.Name,
		Messages:        ch.Len(),
		Edited:          ch.EditedCount(),
		DanglingReplies: ch.DanglingReplies(),
	}

	first, last, err := ch.Span()
	if err == nil {
		o.FirstMessageAt, o.LastMessageAt = first, last
	} else if !errors.Is(err, domain.ErrNoData) {
		return o, nil, err
	}

	// Цикл ответов портит только метрики цепочек этого чата
	chains, err := ch.ReplyChains()
	if errors.Is(err, domain.ErrReplyCycle) {
		b.log.Warn("Цепочки ответов пропущены", "chat_id", ch.ID, "error", err)
		o.ReplyChains = -1
		o.ReplyChainsError = err.Error()
	} else if err != nil {
		return o, nil, fmt.Errorf("не удалось построить цепочки ответов: %w", err)
	}

	longest := chat.LongestOf(chains)
	if err == nil {
		o.ReplyChains = len(chains)
		o.LongestReplyChain = len(longest)
	}

	if types := ch.OtherContentTypeCounts(); len(types) > 0 {
		o.OtherContentTypes = map[string]int(types)
	}
	return o, longest, nil
}

func summaryRows(in []chats.RoleSummary) []domain.SummaryRow {
	out := make([]domain.SummaryRow, 0, len(in))
	for _, s := range in {
		out = append(out, domain.SummaryRow{
			ChatID: s.ChatID,
			Name:   s.Name,
			Role:   string(s.Role),
			Sender: s.Sender,
			N:      s.N,
			Median: s.Median,
			StdErr: s.StdErr,
		})
	}
	return out
}

func emojiCounts(items []stats.CountItem) []domain.EmojiCount {
	out := make([]domain.EmojiCount, 0, len(items))
	for _, it := range items {
		out = append(out, domain.EmojiCount{Emoji: it.Key, Count: it.Count})
	}
	return out
}

func threadOf(chatID string, chain []*domain.Message) *domain.ReplyThread {
	t := &domain.ReplyThread{ChatID: chatID}
	for _, m := range chain {
		t.Messages = append(t.Messages, domain.ThreadEntry{ID: m.ID, From: m.From, Date: m.Date, Text: m.Text})
	}
	return t
}
