// Package transform reshapes a daily TimeSeries into the climatology views
// the trend and chart commands work on: per-year means, per-month means,
// full-year filtering and date windows. Each operator is a pure function.
package transform

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/derickschaefer/almanac/internal/model"
)

// MinDaysFullYear is the default threshold for FullYears.
const MinDaysFullYear = 365

// ─── Yearly ───────────────────────────────────────────────────────────────────

// YearMeans is the mean of each metric over one calendar year.
type YearMeans struct {
	Year  int                `json:"year"`
	Days  int                `json:"days"` // records in the year
	Means model.MetricValues `json:"means"`
}

// Yearly groups ts by calendar year and averages each metric, skipping NaN.
// Years come out ascending.
func Yearly(ts *model.TimeSeries) []YearMeans {
	type acc struct {
		days int
		sums map[model.Metric][]float64
	}
	byYear := make(map[int]*acc)
	var order []int
	for i := 0; i < ts.Len(); i++ {
		r := ts.At(i)
		y := r.Date.Year()
		a, ok := byYear[y]
		if !ok {
			a = &acc{sums: make(map[model.Metric][]float64, len(model.AllMetrics))}
			byYear[y] = a
			order = append(order, y)
		}
		a.days++
		for _, m := range model.AllMetrics {
			a.sums[m] = append(a.sums[m], r.Value(m))
		}
	}
	// ts is date-ordered, so order is already ascending.
	out := make([]YearMeans, 0, len(order))
	for _, y := range order {
		a := byYear[y]
		ym := YearMeans{Year: y, Days: a.days, Means: model.MissingValues()}
		for _, m := range model.AllMetrics {
			ym.Means.Set(m, mean(a.sums[m]))
		}
		out = append(out, ym)
	}
	return out
}

// Points extracts the (year, mean) pairs of metric from yearly means.
func Points(years []YearMeans, metric model.Metric) []model.YearValue {
	out := make([]model.YearValue, len(years))
	for i, y := range years {
		out[i] = model.YearValue{Year: y.Year, Value: y.Means.Value(metric)}
	}
	return out
}

// ─── Monthly ──────────────────────────────────────────────────────────────────

// MonthMeans is the mean of each metric over one calendar month, pooled
// across every year in the series.
type MonthMeans struct {
	Month time.Month         `json:"month"`
	Days  int                `json:"days"`
	Means model.MetricValues `json:"means"`
}

// Monthly averages each metric per calendar month across all years.
// Months without data are omitted; the rest come out January first.
func Monthly(ts *model.TimeSeries) []MonthMeans {
	var days [13]int
	var vals [13]map[model.Metric][]float64
	for i := 0; i < ts.Len(); i++ {
		r := ts.At(i)
		m := r.Date.Month()
		if vals[m] == nil {
			vals[m] = make(map[model.Metric][]float64, len(model.AllMetrics))
		}
		days[m]++
		for _, metric := range model.AllMetrics {
			vals[m][metric] = append(vals[m][metric], r.Value(metric))
		}
	}
	var out []MonthMeans
	for m := time.January; m <= time.December; m++ {
		if days[m] == 0 {
			continue
		}
		mm := MonthMeans{Month: m, Days: days[m], Means: model.MissingValues()}
		for _, metric := range model.AllMetrics {
			mm.Means.Set(metric, mean(vals[m][metric]))
		}
		out = append(out, mm)
	}
	return out
}

// ─── Filters ──────────────────────────────────────────────────────────────────

// FullYears keeps only the years in which at least minDays dates carry a
// value for metric. minDays ≤ 0 means MinDaysFullYear. It returns the
// filtered series and the kept years, ascending.
func FullYears(ts *model.TimeSeries, metric model.Metric, minDays int) (*model.TimeSeries, []int, error) {
	if minDays <= 0 {
		minDays = MinDaysFullYear
	}
	counts := make(map[int]int)
	for i := 0; i < ts.Len(); i++ {
		r := ts.At(i)
		if !r.IsMissing(metric) {
			counts[r.Date.Year()]++
		}
	}
	var kept []int
	keep := make(map[int]bool)
	for y, n := range counts {
		if n >= minDays {
			kept = append(kept, y)
			keep[y] = true
		}
	}
	sort.Ints(kept)

	var recs []model.TemperatureRecord
	for i := 0; i < ts.Len(); i++ {
		if r := ts.At(i); keep[r.Date.Year()] {
			recs = append(recs, r)
		}
	}
	out, err := model.NewTimeSeries(recs)
	if err != nil {
		return nil, nil, fmt.Errorf("full-years: %w", err)
	}
	return out, kept, nil
}

// Between keeps records with from ≤ date < to. A zero bound is open.
func Between(ts *model.TimeSeries, from, to time.Time) (*model.TimeSeries, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, fmt.Errorf("between: from %s must be before to %s",
			from.Format(model.DateLayout), to.Format(model.DateLayout))
	}
	var recs []model.TemperatureRecord
	for i := 0; i < ts.Len(); i++ {
		r := ts.At(i)
		if !from.IsZero() && r.Date.Before(model.DateOf(from)) {
			continue
		}
		if !to.IsZero() && !r.Date.Before(model.DateOf(to)) {
			continue
		}
		recs = append(recs, r)
	}
	return model.NewTimeSeries(recs)
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// mean skips NaN; an empty or all-NaN input yields NaN.
func mean(vals []float64) float64 {
	var s float64
	var n int
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		s += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return s / float64(n)
}
