// Package stats содержит числовые агрегаты, общие для отчетов по чатам.
package stats

import (
	"fmt"
	"math"
	"sort"

	"telegram-chat-stats/internal/domain"
)

// StandardErrorMultiplier — множитель стандартной ошибки для полос доверия на графиках:
// SE = 3 * σ / √n, где σ — стандартное отклонение генеральной совокупности.
const StandardErrorMultiplier = 3.0

// Summary — медиана выборки с погрешностью.
type Summary struct {
	N      int     `json:"n"`
	Median float64 `json:"median"`
	StdErr float64 `json:"std_err"`
}

// Median возвращает медиану. Для четного числа значений берется среднее двух центральных.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("медиана пустой выборки: %w", domain.ErrNoData)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], nil
	}
	return (sorted[mid-1] + sorted[mid]) / 2, nil
}

// Mean возвращает среднее арифметическое.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("среднее пустой выборки: %w", domain.ErrNoData)
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

// PopulationStdev возвращает стандартное отклонение генеральной совокупности.
func PopulationStdev(values []float64) (float64, error) {
	mean, err := Mean(values)
	if err != nil {
		return 0, err
	}
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values))), nil
}

// StandardError возвращает StandardErrorMultiplier * σ / √n.
func StandardError(values []float64) (float64, error) {
	sd, err := PopulationStdev(values)
	if err != nil {
		return 0, err
	}
	return StandardErrorMultiplier * sd / math.Sqrt(float64(len(values))), nil
}

// Summarize считает медиану и стандартную ошибку выборки.
func Summarize(values []float64) (Summary, error) {
	median, err := Median(values)
	if err != nil {
		return Summary{}, err
	}
	se, err := StandardError(values)
	if err != nil {
		return Summary{}, err
	}
	return Summary{N: len(values), Median: median, StdErr: se}, nil
}

// Floats переводит целочисленную выборку в float64.
func Floats(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
