package domain

import "time"

// Report содержит итоговые агрегаты по всем чатам. Его получают
// консольный вывод, Excel-выгрузка и HTTP API.
// Это наша внутренняя модель, а не структура из JSON экспорта.
type Report struct {
	Self          string           `json:"self"`
	GeneratedAt   time.Time        `json:"generated_at"`
	Options       ReportOptions    `json:"options"`
	Chats         []ChatOverview   `json:"chats"`
	Counts        []ChatCountRow   `json:"counts"`
	Lengths       []SummaryRow     `json:"lengths"`
	Waits         []SummaryRow     `json:"waits"`
	Hours         []HourRow        `json:"hours"`
	Reactions     []ReactionRow    `json:"reactions"`
	Timeline      []TimelineSeries `json:"timeline"`
	LongestThread *ReplyThread     `json:"longest_thread,omitempty"`
}

// ReportOptions хранит параметры, с которыми построен отчет.
type ReportOptions struct {
	GroupBy        string        `json:"group_by"`
	Include        []string      `json:"include,omitempty"`
	WaitThreshold  time.Duration `json:"wait_threshold"`
	TopReactions   int           `json:"top_reactions"`
	NormalizeHours bool          `json:"normalize_hours"`
}

// ChatOverview описывает один чат.
type ChatOverview struct {
	ChatID         string    `json:"chat_id"`
	ExportID       int64     `json:"export_id"`
	Name           string    `json:"name"`
	Messages       int       `json:"messages"`
	Edited         int       `json:"edited"`
	FirstMessageAt time.Time `json:"first_message_at"`
	LastMessageAt  time.Time `json:"last_message_at"`
	// ReplyChains равно -1, если цепочки не удалось построить.
	ReplyChains       int            `json:"reply_chains"`
	ReplyChainsError  string         `json:"reply_chains_error,omitempty"`
	LongestReplyChain int            `json:"longest_reply_chain"`
	DanglingReplies   int            `json:"dangling_replies"`
	OtherContentTypes map[string]int `json:"other_content_types,omitempty"`
}

// ChatCountRow содержит число сообщений в чате с разбивкой по сторонам.
type ChatCountRow struct {
	ChatID      string  `json:"chat_id"`
	Name        string  `json:"name"`
	Total       int     `json:"total"`
	Self        int     `json:"self"`
	Other       int     `json:"other"`
	Percent     float64 `json:"percent"`
	SelfPercent float64 `json:"self_percent"`
}

// SummaryRow — медиана с погрешностью для стороны чата.
type SummaryRow struct {
	ChatID string  `json:"chat_id"`
	Name   string  `json:"name"`
	Role   string  `json:"role"`
	Sender string  `json:"sender"`
	N      int     `json:"n"`
	Median float64 `json:"median"`
	StdErr float64 `json:"std_err"`
}

// HourRow распределяет сообщения чата по часам суток.
type HourRow struct {
	ChatID string      `json:"chat_id"`
	Name   string      `json:"name"`
	Bins   [24]float64 `json:"bins"`
}

type EmojiCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// ReactionRow — самые частые реакции сторон в чате.
type ReactionRow struct {
	ChatID string       `json:"chat_id"`
	Name   string       `json:"name"`
	Self   []EmojiCount `json:"self"`
	Other  []EmojiCount `json:"other"`
}

// TimelineSeries хранит число сообщений по временным корзинам.
type TimelineSeries struct {
	ChatID string      `json:"chat_id"`
	Name   string      `json:"name"`
	X      []time.Time `json:"x"`
	Y      []int       `json:"y"`
}

// ReplyThread — самая длинная цепочка ответов среди всех чатов.
type ReplyThread struct {
	ChatID   string        `json:"chat_id"`
	Messages []ThreadEntry `json:"messages"`
}

type ThreadEntry struct {
	ID   int       `json:"id"`
	From string    `json:"from"`
	Date time.Time `json:"date"`
	Text string    `json:"text"`
}
