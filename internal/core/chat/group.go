package chat

import (
	"fmt"
	"sort"
	"time"

	"telegram-chat-stats/internal/domain"
)

// GroupKey — размер временной корзины.
type GroupKey string

const (
	Day   GroupKey = "day"
	Week  GroupKey = "week"
	Month GroupKey = "month"
)

// ParseGroupKey проверяет строковое значение ключа группировки.
func ParseGroupKey(value string) (GroupKey, error) {
	switch k := GroupKey(value); k {
	case Day, Week, Month:
		return k, nil
	default:
		return "", fmt.Errorf("неизвестный ключ группировки %q: допустимы day, week, month", value)
	}
}

// BucketOf возвращает начало корзины для момента t: календарную дату,
// понедельник недели или первое число месяца.
func (k GroupKey) BucketOf(t time.Time) time.Time {
	y, m, d := t.Date()
	switch k {
	case Week:
		offset := (int(t.Weekday()) + 6) % 7 // понедельник = 0
		return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}
}

// Bucket — сообщения, попавшие в одну временную корзину.
type Bucket struct {
	Start    time.Time
	Messages []*domain.Message
}

// Series — временной ряд для внешнего построения графиков.
type Series struct {
	Name string      `json:"name"`
	X    []time.Time `json:"x"`
	Y    []int       `json:"y"`
}

// groupMessages раскладывает сообщения по корзинам. Корзины упорядочены по времени,
// внутри корзины сохраняется порядок входного списка.
func groupMessages(messages []*domain.Message, key GroupKey) []Bucket {
	byStart := make(map[time.Time]int)
	var buckets []Bucket
	for _, msg := range messages {
		start := key.BucketOf(msg.Date)
		i, ok := byStart[start]
		if !ok {
			i = len(buckets)
			byStart[start] = i
			buckets = append(buckets, Bucket{Start: start})
		}
		buckets[i].Messages = append(buckets[i].Messages, msg)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})
	return buckets
}
