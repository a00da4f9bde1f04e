// Package model defines the canonical data types used throughout almanac.
// These types are the single source of truth for daily temperature records,
// the derived analysis results, and the result envelope every command returns.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// ─── Metrics ──────────────────────────────────────────────────────────────────

// Metric names one numeric column of a daily temperature record.
type Metric string

const (
	MetricHigh Metric = "high"
	MetricLow  Metric = "low"
	MetricMean Metric = "mean"
)

// AllMetrics lists every metric in display order (high, mean, low).
var AllMetrics = []Metric{MetricHigh, MetricMean, MetricLow}

// ParseMetric accepts a metric name, case-sensitive.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricHigh, MetricLow, MetricMean:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown metric %q (use high, low or mean)", s)
}

// Direction selects the ranking order.
type Direction string

const (
	// Descending ranks the largest value first ("hottest first").
	Descending Direction = "desc"
	// Ascending ranks the smallest value first ("coldest first").
	Ascending Direction = "asc"
)

// ParseDirection accepts desc/asc and the aliases hottest/coldest.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "desc", "hottest":
		return Descending, nil
	case "asc", "coldest":
		return Ascending, nil
	}
	return "", fmt.Errorf("unknown direction %q (use desc|hottest or asc|coldest)", s)
}

// ─── Records ──────────────────────────────────────────────────────────────────

// TemperatureRecord is one day of readings. A metric is NaN when the source
// value was absent or unparseable. High >= Low is expected but not enforced.
type TemperatureRecord struct {
	Date time.Time `json:"date"`
	High float64   `json:"high"`
	Low  float64   `json:"low"`
	Mean float64   `json:"mean"`
}

// Value returns the named metric.
func (r TemperatureRecord) Value(m Metric) float64 {
	switch m {
	case MetricHigh:
		return r.High
	case MetricLow:
		return r.Low
	case MetricMean:
		return r.Mean
	}
	return math.NaN()
}

// IsMissing returns true if the metric value is NaN.
func (r TemperatureRecord) IsMissing(m Metric) bool {
	return math.IsNaN(r.Value(m))
}

// HasAny returns true if at least one metric carries a value.
func (r TemperatureRecord) HasAny() bool {
	for _, m := range AllMetrics {
		if !r.IsMissing(m) {
			return true
		}
	}
	return false
}

// MarshalJSON writes the pipe form {"date":"YYYY-MM-DD","high":x|null,...}.
func (r TemperatureRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date string `json:"date"`
		High Float  `json:"high"`
		Low  Float  `json:"low"`
		Mean Float  `json:"mean"`
	}{r.Date.Format(DateLayout), Float(r.High), Float(r.Low), Float(r.Mean)})
}

// ─── Float ────────────────────────────────────────────────────────────────────

// Float is a float64 that encodes NaN and ±Inf as JSON null and decodes
// null back to NaN.
type Float float64

// NaN returns a missing Float.
func NaN() Float { return Float(math.NaN()) }

// IsNaN reports whether f is missing.
func (f Float) IsNaN() bool { return math.IsNaN(float64(f)) }

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = NaN()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// MetricValues carries one value per metric, e.g. a set of means.
type MetricValues struct {
	High Float `json:"high"`
	Low  Float `json:"low"`
	Mean Float `json:"mean"`
}

// Value returns the named metric as a float64.
func (v MetricValues) Value(m Metric) float64 {
	switch m {
	case MetricHigh:
		return float64(v.High)
	case MetricLow:
		return float64(v.Low)
	case MetricMean:
		return float64(v.Mean)
	}
	return math.NaN()
}

// Set assigns the named metric.
func (v *MetricValues) Set(m Metric, x float64) {
	switch m {
	case MetricHigh:
		v.High = Float(x)
	case MetricLow:
		v.Low = Float(x)
	case MetricMean:
		v.Mean = Float(x)
	}
}

// MissingValues returns a MetricValues with every metric NaN.
func MissingValues() MetricValues {
	return MetricValues{High: NaN(), Low: NaN(), Mean: NaN()}
}

// ─── Time Series ──────────────────────────────────────────────────────────────

// TimeSeries is an ascending, date-unique sequence of records.
// It is immutable once built; every accessor hands out copies.
type TimeSeries struct {
	records []TemperatureRecord
}

// NewTimeSeries copies recs, normalises each date to UTC midnight, sorts by
// date and rejects duplicates. Callers that need last-wins deduplication
// should go through the normalize package.
func NewTimeSeries(recs []TemperatureRecord) (*TimeSeries, error) {
	out := make([]TemperatureRecord, len(recs))
	copy(out, recs)
	for i := range out {
		out[i].Date = DateOf(out[i].Date)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	for i := 1; i < len(out); i++ {
		if out[i].Date.Equal(out[i-1].Date) {
			return nil, fmt.Errorf("time series: duplicate date %s", out[i].Date.Format(DateLayout))
		}
	}
	return &TimeSeries{records: out}, nil
}

// Len returns the number of records.
func (ts *TimeSeries) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.records)
}

// At returns the i-th record in date order.
func (ts *TimeSeries) At(i int) TemperatureRecord {
	return ts.records[i]
}

// Records returns a copy of all records in date order.
func (ts *TimeSeries) Records() []TemperatureRecord {
	if ts == nil {
		return nil
	}
	out := make([]TemperatureRecord, len(ts.records))
	copy(out, ts.records)
	return out
}

// Find returns the record for the calendar date of d.
func (ts *TimeSeries) Find(d time.Time) (TemperatureRecord, bool) {
	if ts == nil {
		return TemperatureRecord{}, false
	}
	d = DateOf(d)
	i := sort.Search(len(ts.records), func(i int) bool { return !ts.records[i].Date.Before(d) })
	if i < len(ts.records) && ts.records[i].Date.Equal(d) {
		return ts.records[i], true
	}
	return TemperatureRecord{}, false
}

// First returns the earliest record. The series must not be empty.
func (ts *TimeSeries) First() TemperatureRecord { return ts.records[0] }

// Last returns the latest record. The series must not be empty.
func (ts *TimeSeries) Last() TemperatureRecord { return ts.records[len(ts.records)-1] }

// YearSpan returns the first and last calendar year in the series.
// An empty series returns the zero range.
func (ts *TimeSeries) YearSpan() YearRange {
	if ts.Len() == 0 {
		return YearRange{}
	}
	return YearRange{From: ts.First().Date.Year(), To: ts.Last().Date.Year()}
}

// ─── Dates & Year Ranges ──────────────────────────────────────────────────────

// DateLayout is the canonical YYYY-MM-DD layout.
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// YearRange is a closed interval of calendar years. A zero bound is open.
type YearRange struct {
	From int `json:"from,omitempty"`
	To   int `json:"to,omitempty"`
}

// Contains reports whether year falls inside the range.
func (r YearRange) Contains(year int) bool {
	if r.From != 0 && year < r.From {
		return false
	}
	if r.To != 0 && year > r.To {
		return false
	}
	return true
}

// Bounded returns true when both ends are set.
func (r YearRange) Bounded() bool { return r.From != 0 && r.To != 0 }

// Validate rejects inverted ranges.
func (r YearRange) Validate() error {
	if r.Bounded() && r.From > r.To {
		return fmt.Errorf("year range %d-%d is inverted", r.From, r.To)
	}
	return nil
}

// Years lists every year in a bounded range, ascending.
func (r YearRange) Years() []int {
	if !r.Bounded() || r.From > r.To {
		return nil
	}
	out := make([]int, 0, r.To-r.From+1)
	for y := r.From; y <= r.To; y++ {
		out = append(out, y)
	}
	return out
}

// String formats the range as "FROM-TO" with "*" for open ends.
func (r YearRange) String() string {
	from, to := "*", "*"
	if r.From != 0 {
		from = fmt.Sprintf("%d", r.From)
	}
	if r.To != 0 {
		to = fmt.Sprintf("%d", r.To)
	}
	return from + "-" + to
}

// ─── Analysis Types ───────────────────────────────────────────────────────────

// SameDaySet holds every record sharing a calendar month/day, optionally
// restricted to a year range. It lives for one analysis request.
type SameDaySet struct {
	Month   time.Month          `json:"month"`
	Day     int                 `json:"day"`
	Years   YearRange           `json:"years"`
	Records []TemperatureRecord `json:"records"`
}

// Len returns the number of records in the set.
func (s SameDaySet) Len() int { return len(s.Records) }

// RankResult places one record within a same-day set.
// Rank 1 is the most extreme value under Direction; Percentile is
// 100*(Rank-1)/Total, so the top record reads 0%.
type RankResult struct {
	Metric     Metric    `json:"metric"`
	Direction  Direction `json:"direction"`
	Date       time.Time `json:"date"`
	Value      float64   `json:"value"`
	Rank       int       `json:"rank"`
	Total      int       `json:"total"`
	Percentile float64   `json:"percentile"`
}

// TrendModel is an ordinary least-squares line value ≈ Slope*year + Intercept.
type TrendModel struct {
	Metric    Metric    `json:"metric"`
	Slope     float64   `json:"slope"`
	Intercept float64   `json:"intercept"`
	R2        float64   `json:"r2"`
	FitYears  YearRange `json:"fit_years"`
	Points    int       `json:"points"`
}

// At evaluates the fitted line at year.
func (m TrendModel) At(year int) float64 {
	return m.Slope*float64(year) + m.Intercept
}

// YearValue is one (year, value) point for trend fitting and prediction.
type YearValue struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// MarshalJSON writes a NaN value as null.
func (v YearValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Year  int   `json:"year"`
		Value Float `json:"value"`
	}{v.Year, Float(v.Value)})
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries timing and size metadata for a command result.
type ResultStats struct {
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
	Skipped    int   `json:"skipped,omitempty"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindSeries      = "series"
	KindDayReport   = "day_report"
	KindPairs       = "pairs"
	KindPeriod      = "period_report"
	KindTrend       = "trend_report"
	KindClimatology = "climatology"
	KindReport      = "report"
	KindTable       = "table"
)
