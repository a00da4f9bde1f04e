// Package analyze is the statistical engine: same-day extraction, ranking,
// recent-period comparison and least-squares trends over a TimeSeries.
// All functions are pure; no I/O, no logging.
package analyze

import (
	"math"
	"sort"

	"github.com/derickschaefer/almanac/internal/model"
)

// ─── Summary ──────────────────────────────────────────────────────────────────

// Summary holds descriptive statistics for one metric of a same-day set.
type Summary struct {
	Metric     model.Metric `json:"metric"`
	Count      int          `json:"count"`   // records in the set
	Missing    int          `json:"missing"` // NaN count
	MissingPct model.Float  `json:"missing_pct"`
	Mean       model.Float  `json:"mean"`
	Std        model.Float  `json:"std"`
	Min        model.Float  `json:"min"`
	P25        model.Float  `json:"p25"`
	Median     model.Float  `json:"median"`
	P75        model.Float  `json:"p75"`
	Max        model.Float  `json:"max"`
	First      model.Float  `json:"first"` // earliest year with a value
	Last       model.Float  `json:"last"`  // latest year with a value
	Change     model.Float  `json:"change"`
}

// Summarize computes descriptive statistics for metric over set.
// NaN values are excluded from all numeric computations but counted.
func Summarize(set model.SameDaySet, metric model.Metric) Summary {
	s := Summary{Metric: metric, Count: set.Len()}

	var vals []float64
	for _, r := range set.Records {
		if r.IsMissing(metric) {
			s.Missing++
			continue
		}
		vals = append(vals, r.Value(metric))
	}
	if s.Count > 0 {
		s.MissingPct = model.Float(float64(s.Missing) / float64(s.Count) * 100)
	}
	if len(vals) == 0 {
		nan := model.NaN()
		s.Mean, s.Std, s.Min, s.P25, s.Median = nan, nan, nan, nan, nan
		s.P75, s.Max, s.First, s.Last, s.Change = nan, nan, nan, nan, nan
		return s
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	mean := meanF(vals)
	s.Mean = model.Float(mean)
	s.Std = model.Float(stddevF(vals, mean))
	s.Min = model.Float(sorted[0])
	s.Max = model.Float(sorted[len(sorted)-1])
	s.P25 = model.Float(percentile(sorted, 25))
	s.Median = model.Float(percentile(sorted, 50))
	s.P75 = model.Float(percentile(sorted, 75))

	// set.Records is date-ordered, so vals is too.
	s.First = model.Float(vals[0])
	s.Last = model.Float(vals[len(vals)-1])
	s.Change = s.Last - s.First
	return s
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

// meanF is the arithmetic mean of vals, skipping NaN. No values → NaN.
func meanF(vals []float64) float64 {
	var sum float64
	var n int
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func stddevF(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	idx := p / 100 * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
