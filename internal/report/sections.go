package report

import (
	"log/slog"
	"math"
	"time"

	"github.com/derickschaefer/almanac/internal/analyze"
	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/util"
)

// ─── Day ──────────────────────────────────────────────────────────────────────

// DaySection ranks the target day against the same calendar day in history:
// its high hottest-first, its low coldest-first, the top-K in both
// directions and the all-time records.
type DaySection struct {
	Target  time.Time                `json:"target"`
	Record  *model.TemperatureRecord `json:"record,omitempty"` // nil when the target is absent
	Years   model.YearRange          `json:"years"`
	Count   int                      `json:"count"`
	High    *model.RankResult        `json:"high,omitempty"`
	Low     *model.RankResult        `json:"low,omitempty"`
	Hottest []analyze.RankedRecord   `json:"hottest"`
	Coldest []analyze.RankedRecord   `json:"coldest"`

	RecordHigh *analyze.Extreme  `json:"record_high,omitempty"`
	RecordLow  *analyze.Extreme  `json:"record_low,omitempty"`
	Summary    []analyze.Summary `json:"summary"`

	Set    model.SameDaySet `json:"-"`
	Err    error            `json:"-"`
	Errors []string         `json:"errors,omitempty"`
}

// Day builds the same-day section for target. Errors from the individual
// rankings are collected on the section.
func Day(ts *model.TimeSeries, target time.Time, years model.YearRange, topK int) *DaySection {
	start := time.Now()
	target = model.DateOf(target)
	set := analyze.SameDayAs(ts, target, years)
	sec := &DaySection{
		Target:  target,
		Years:   years,
		Count:   set.Len(),
		Set:     set,
		Hottest: analyze.TopK(set, model.MetricHigh, model.Descending, topK),
		Coldest: analyze.TopK(set, model.MetricLow, model.Ascending, topK),
	}
	if rec, ok := ts.Find(target); ok {
		sec.Record = &rec
	}

	var errs util.MultiError
	refHigh, refLow := math.NaN(), math.NaN()
	if sec.Record != nil {
		refHigh, refLow = sec.Record.High, sec.Record.Low
	}

	if rr, err := analyze.Rank(set, target, model.MetricHigh, model.Descending); err != nil {
		errs.Add(err)
	} else {
		sec.High = &rr
	}
	if rr, err := analyze.Rank(set, target, model.MetricLow, model.Ascending); err != nil {
		errs.Add(err)
	} else {
		sec.Low = &rr
	}
	if ex, err := analyze.RecordFor(set, model.MetricHigh, model.Descending, refHigh); err == nil {
		sec.RecordHigh = &ex
	}
	if ex, err := analyze.RecordFor(set, model.MetricLow, model.Ascending, refLow); err == nil {
		sec.RecordLow = &ex
	}
	for _, m := range model.AllMetrics {
		sec.Summary = append(sec.Summary, analyze.Summarize(set, m))
	}

	sec.Err = errs.Err()
	sec.Errors = errs.Strings()
	observe("day", start, sec.Err)
	if sec.Err != nil {
		slog.Info("day section incomplete", "target", target.Format(model.DateLayout), "error", sec.Err)
	}
	return sec
}

// ─── Period ───────────────────────────────────────────────────────────────────

// PeriodSection wraps the period comparison with its error.
type PeriodSection struct {
	analyze.PeriodResult
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// Period builds the recent-window section ending before reference.
func Period(ts *model.TimeSeries, reference time.Time, days int, rankBy model.Metric) *PeriodSection {
	start := time.Now()
	res, err := analyze.Period(ts, reference, days, rankBy)
	sec := &PeriodSection{PeriodResult: res, Err: err}
	if err != nil {
		sec.Error = err.Error()
		slog.Info("period section incomplete", "reference", model.DateOf(reference).Format(model.DateLayout), "error", err)
	}
	observe("period", start, err)
	return sec
}
