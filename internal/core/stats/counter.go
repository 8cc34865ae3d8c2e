package stats

import "sort"

// CountItem — ключ и сколько раз он встретился.
type CountItem struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Counter — частотная таблица строковых ключей.
type Counter map[string]int

// Add увеличивает счетчик ключа на единицу.
func (c Counter) Add(key string) {
	c[key]++
}

// Total возвращает сумму всех счетчиков.
func (c Counter) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// MostCommon возвращает n самых частых ключей по убыванию; при равенстве — по ключу.
// n <= 0 означает все ключи.
func (c Counter) MostCommon(n int) []CountItem {
	items := make([]CountItem, 0, len(c))
	for k, v := range c {
		items = append(items, CountItem{Key: k, Count: v})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Key < items[j].Key
		}
		return items[i].Count > items[j].Count
	})
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return items
}
