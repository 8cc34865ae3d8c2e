package exporter

import (
	"io"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// table — простая текстовая таблица с выравниванием по ширине символов.
type table struct {
	headers []string
	rows    [][]string
	// maxWidth ограничивает ширину колонки; длинные значения переносятся.
	maxWidth int
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) widths() []int {
	widths := make([]int, len(t.headers))
	measure := func(cells []string) {
		for i, c := range cells {
			if i >= len(widths) {
				break
			}
			w := runewidth.StringWidth(c)
			if t.maxWidth > 0 && w > t.maxWidth {
				w = t.maxWidth
			}
			if w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.headers)
	for _, r := range t.rows {
		measure(r)
	}
	return widths
}

func (t *table) render(w io.Writer) error {
	widths := t.widths()

	var sb strings.Builder
	writeRow := func(cells []string) {
		wrapped := make([][]string, len(widths))
		height := 1
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			wrapped[i] = wrapString(cell, widths[i])
			if len(wrapped[i]) > height {
				height = len(wrapped[i])
			}
		}
		for line := 0; line < height; line++ {
			for i := range widths {
				part := ""
				if line < len(wrapped[i]) {
					part = wrapped[i][line]
				}
				if i > 0 {
					sb.WriteString("  ")
				}
				sb.WriteString(part)
				if i < len(widths)-1 {
					sb.WriteString(generatePadding(part, widths[i]))
				}
			}
			sb.WriteString("\n")
		}
	}

	writeRow(t.headers)
	separators := make([]string, len(widths))
	for i, wd := range widths {
		separators[i] = strings.Repeat("-", wd)
	}
	writeRow(separators)
	for _, r := range t.rows {
		writeRow(r)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// generatePadding вычисляет отступ для строки с учетом поправки на CJK-символы.
func generatePadding(s string, colWidth int) string {
	paddingNeeded := colWidth - runewidth.StringWidth(s)

	// Поправка: в строках с CJK-символами некоторые терминалы съедают один пробел
	hasCJK := false
	for _, r := range s {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hangul, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			hasCJK = true
			break
		}
	}

	if hasCJK && paddingNeeded >= 0 {
		paddingNeeded++
	}

	if paddingNeeded > 0 {
		return strings.Repeat(" ", paddingNeeded)
	}
	return ""
}

// wrapString переносит строку по ширине, предпочитая границы слов.
// Слово длиннее ширины разрывается посередине.
func wrapString(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	var lines []string
	var currentLine strings.Builder
	for _, word := range strings.Fields(s) {
		wordWidth := runewidth.StringWidth(word)

		if wordWidth > width {
			if currentLine.Len() > 0 {
				lines = append(lines, currentLine.String())
				currentLine.Reset()
			}
			lines = append(lines, breakWord(word, width)...)
			continue
		}

		lineLen := runewidth.StringWidth(currentLine.String())
		if lineLen > 0 && lineLen+1+wordWidth > width {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
		}

		if currentLine.Len() > 0 {
			currentLine.WriteString(" ")
		}
		currentLine.WriteString(word)
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

func breakWord(word string, width int) []string {
	var parts []string
	runes := []rune(word)
	for len(runes) > 0 {
		i := 0
		currentWidth := 0
		for i < len(runes) {
			rw := runewidth.RuneWidth(runes[i])
			if currentWidth+rw > width && i > 0 {
				break
			}
			currentWidth += rw
			i++
		}
		parts = append(parts, string(runes[:i]))
		runes = runes[i:]
	}
	return parts
}
