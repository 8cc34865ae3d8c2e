package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"telegram-chat-stats/internal/domain"
	"telegram-chat-stats/internal/ports"
)

// Имена листов Excel-отчета.
const (
	SheetChats     = "Чаты"
	SheetCounts    = "Сообщения"
	SheetLengths   = "Длина"
	SheetWaits     = "Ожидание"
	SheetHours     = "Часы"
	SheetReactions = "Реакции"
	SheetTimeline  = "Динамика"
)

// ExcelExporter реализует интерфейс Exporter и пишет отчет в xlsx, по листу на раздел.
type ExcelExporter struct {
	w io.Writer
}

// NewExcelExporter создает новый экземпляр ExcelExporter.
func NewExcelExporter(w io.Writer) ports.Exporter {
	return &ExcelExporter{w: w}
}

type sheet struct {
	name    string
	headers []string
	rows    [][]any
}

// Export формирует книгу и записывает ее в writer.
func (e *ExcelExporter) Export(report *domain.Report) (err error) {
	if report == nil {
		return fmt.Errorf("пустой отчет")
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("не удалось закрыть книгу: %w", cerr)
		}
	}()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("не удалось создать стиль: %w", err)
	}

	for i, s := range sheets(report) {
		if err := writeSheet(f, s, headerStyle); err != nil {
			return err
		}
		if i == 0 {
			idx, err := f.GetSheetIndex(s.name)
			if err != nil {
				return err
			}
			f.SetActiveSheet(idx)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("не удалось удалить лист по умолчанию: %w", err)
	}

	if err := f.Write(e.w); err != nil {
		return fmt.Errorf("не удалось записать xlsx: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	if _, err := f.NewSheet(s.name); err != nil {
		return fmt.Errorf("не удалось создать лист %s: %w", s.name, err)
	}

	headers := make([]any, len(s.headers))
	for i, h := range s.headers {
		headers[i] = h
	}
	if err := f.SetSheetRow(s.name, "A1", &headers); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(s.headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return fmt.Errorf("лист %s, строка %d: %w", s.name, i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(s.headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(s.name, "A", lastCol, 16)
}

func sheets(report *domain.Report) []sheet {
	chats := sheet{name: SheetChats, headers: []string{
		"Чат", "ID", "Сообщений", "Правок", "Первое сообщение", "Последнее сообщение",
		"Цепочек ответов", "Самая длинная цепочка", "Ответов вне экспорта", "Другие типы",
	}}
	for _, c := range report.Chats {
		var replyChains, longest any = c.ReplyChains, c.LongestReplyChain
		if c.ReplyChainsError != "" {
			replyChains, longest = replyCycleMark, replyCycleMark
		}
		chats.rows = append(chats.rows, []any{
			c.Name, c.ChatID, c.Messages, c.Edited, c.FirstMessageAt, c.LastMessageAt,
			replyChains, longest, c.DanglingReplies, formatContentTypes(c.OtherContentTypes),
		})
	}

	counts := sheet{name: SheetCounts, headers: []string{"Чат", "Всего", "Владелец", "Собеседник", "Доля, %", "Доля владельца, %"}}
	for _, c := range report.Counts {
		counts.rows = append(counts.rows, []any{c.Name, c.Total, c.Self, c.Other, c.Percent, c.SelfPercent})
	}

	summary := func(name string, rows []domain.SummaryRow) sheet {
		s := sheet{name: name, headers: []string{"Чат", "Сторона", "Отправитель", "N", "Медиана", "Погрешность"}}
		for _, r := range rows {
			s.rows = append(s.rows, []any{r.Name, r.Role, r.Sender, r.N, r.Median, r.StdErr})
		}
		return s
	}

	hours := sheet{name: SheetHours, headers: []string{"Чат"}}
	for h := 0; h < 24; h++ {
		hours.headers = append(hours.headers, fmt.Sprintf("%02d", h))
	}
	for _, h := range report.Hours {
		row := []any{h.Name}
		for _, v := range h.Bins {
			row = append(row, v)
		}
		hours.rows = append(hours.rows, row)
	}

	reactions := sheet{name: SheetReactions, headers: []string{"Чат", "Сторона", "Эмодзи", "Количество"}}
	for _, r := range report.Reactions {
		for _, it := range r.Self {
			reactions.rows = append(reactions.rows, []any{r.Name, "self", it.Emoji, it.Count})
		}
		for _, it := range r.Other {
			reactions.rows = append(reactions.rows, []any{r.Name, "other", it.Emoji, it.Count})
		}
	}

	timeline := sheet{name: SheetTimeline, headers: []string{"Чат", "Начало периода", "Сообщений"}}
	for _, s := range report.Timeline {
		for i, x := range s.X {
			timeline.rows = append(timeline.rows, []any{s.Name, x, s.Y[i]})
		}
	}

	return []sheet{
		chats,
		counts,
		summary(SheetLengths, report.Lengths),
		summary(SheetWaits+", с", report.Waits),
		hours,
		reactions,
		timeline,
	}
}

// SheetNames возвращает имена листов в порядке их создания.
func SheetNames() []string {
	return []string{SheetChats, SheetCounts, SheetLengths, SheetWaits + ", с", SheetHours, SheetReactions, SheetTimeline}
}
