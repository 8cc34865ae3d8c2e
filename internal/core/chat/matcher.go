package chat

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Matcher отбирает сообщения по вхождению подстрок без учета регистра.
// Пустой Matcher пропускает все сообщения.
type Matcher struct {
	patterns []string
}

// NewMatcher создает Matcher; пустые шаблоны игнорируются.
func NewMatcher(patterns ...string) Matcher {
	var m Matcher
	for _, p := range patterns {
		if p == "" {
			continue
		}
		m.patterns = append(m.patterns, lower(p))
	}
	return m
}

// Empty сообщает, что фильтр не задан.
func (m Matcher) Empty() bool {
	return len(m.patterns) == 0
}

// Match сообщает, содержит ли текст хотя бы один из шаблонов.
func (m Matcher) Match(text string) bool {
	if m.Empty() {
		return true
	}
	text = lower(text)
	for _, p := range m.patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Caser хранит состояние, поэтому создается на каждый вызов.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
