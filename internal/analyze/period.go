package analyze

import (
	"fmt"
	"math"
	"time"

	"github.com/derickschaefer/almanac/internal/model"
)

// DefaultWindowDays is the recent-window length used when none is given.
const DefaultWindowDays = 7

// PeriodResult compares the recent window before a reference date with the
// same calendar days across the whole series.
type PeriodResult struct {
	Reference   time.Time          `json:"reference"`
	Days        int                `json:"days"`
	From        time.Time          `json:"from"` // inclusive
	To          time.Time          `json:"to"`   // exclusive
	RecentCount int                `json:"recent_count"`
	Recent      model.MetricValues `json:"recent"`
	Historical  model.MetricValues `json:"historical"`
	Groups      int                `json:"groups"`
	NoData      bool               `json:"no_data,omitempty"`

	RankBy     model.Metric `json:"rank_by"`
	Less       int          `json:"less"`
	Total      int          `json:"total"`
	Rank       int          `json:"rank"`
	Percentile model.Float  `json:"percentile"`
	TopPercent model.Float  `json:"top_percent"`
}

// Diff returns recent minus historical for metric.
func (p PeriodResult) Diff(m model.Metric) float64 {
	return p.Recent.Value(m) - p.Historical.Value(m)
}

type dayKey struct {
	month time.Month
	day   int
}

// Period averages the days window [reference-days, reference) and compares
// it with the historical mean of the same calendar days.
//
// The historical mean is two-level: each calendar day's records (all years)
// are averaged first, then the per-day means are averaged. The recent mean
// of rankBy is ranked against the per-day means: less counts the days whose
// mean is strictly below it, and rank = total - less.
//
// When the window holds no record with any value the result has NoData set
// and the error wraps model.ErrEmptyWindow.
func Period(ts *model.TimeSeries, reference time.Time, days int, rankBy model.Metric) (PeriodResult, error) {
	if days < 1 {
		return PeriodResult{}, fmt.Errorf("period: days must be ≥ 1, got %d", days)
	}
	if rankBy == "" {
		rankBy = model.MetricMean
	}
	reference = model.DateOf(reference)
	res := PeriodResult{
		Reference:  reference,
		Days:       days,
		From:       reference.AddDate(0, 0, -days),
		To:         reference,
		Recent:     model.MissingValues(),
		Historical: model.MissingValues(),
		RankBy:     rankBy,
		Percentile: model.NaN(),
		TopPercent: model.NaN(),
	}

	keys := make(map[dayKey]bool, days)
	for i := 1; i <= days; i++ {
		d := reference.AddDate(0, 0, -i)
		keys[dayKey{d.Month(), d.Day()}] = true
	}

	recent := make(map[model.Metric][]float64, len(model.AllMetrics))
	groups := make(map[dayKey]map[model.Metric][]float64, days)
	for i := 0; i < ts.Len(); i++ {
		r := ts.At(i)
		if !r.Date.Before(res.From) && r.Date.Before(res.To) && r.HasAny() {
			res.RecentCount++
			for _, m := range model.AllMetrics {
				recent[m] = append(recent[m], r.Value(m))
			}
		}
		k := dayKey{r.Date.Month(), r.Date.Day()}
		if !keys[k] {
			continue
		}
		g := groups[k]
		if g == nil {
			g = make(map[model.Metric][]float64, len(model.AllMetrics))
			groups[k] = g
		}
		for _, m := range model.AllMetrics {
			g[m] = append(g[m], r.Value(m))
		}
	}
	res.Groups = len(groups)

	groupMeans := make(map[model.Metric][]float64, len(model.AllMetrics))
	for _, g := range groups {
		for _, m := range model.AllMetrics {
			groupMeans[m] = append(groupMeans[m], meanF(g[m]))
		}
	}
	for _, m := range model.AllMetrics {
		res.Historical.Set(m, meanF(groupMeans[m]))
	}

	if res.RecentCount == 0 {
		res.NoData = true
		return res, fmt.Errorf("period %s..%s: %w",
			res.From.Format(model.DateLayout), res.To.AddDate(0, 0, -1).Format(model.DateLayout), model.ErrEmptyWindow)
	}
	for _, m := range model.AllMetrics {
		res.Recent.Set(m, meanF(recent[m]))
	}

	target := res.Recent.Value(rankBy)
	if math.IsNaN(target) {
		return res, nil
	}
	// Every group counts toward the total; one with no valid value for
	// rankBy is never less.
	for _, gm := range groupMeans[rankBy] {
		res.Total++
		if gm < target {
			res.Less++
		}
	}
	if res.Total > 0 {
		pct := 100 * float64(res.Less) / float64(res.Total)
		res.Rank = res.Total - res.Less
		res.Percentile = model.Float(pct)
		res.TopPercent = model.Float(100 - pct)
	}
	return res, nil
}
