// Package normalize turns a raw tabular dataset into a model.TimeSeries:
// it resolves the configured columns, parses dates with one fixed layout,
// coerces numerics (missing → NaN) and collapses duplicate dates.
package normalize

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/derickschaefer/almanac/internal/metrics"
	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/util"
)

// maxDateErrorSamples caps how many DateParseErrors Diagnostics keeps.
const maxDateErrorSamples = 5

// Record is one raw row keyed by column name. Values may be string,
// float64, float32, int, int64, time.Time or nil.
type Record map[string]any

// Table is a raw dataset as produced by a loader.
type Table struct {
	Columns []string
	Records []Record
}

// Schema names the source columns and the date layout.
type Schema struct {
	Date     string
	High     string
	Low      string
	Mean     string
	Layout   string
	Required []model.Metric
}

// DefaultSchema matches the KMA daily temperature export.
func DefaultSchema() Schema {
	return Schema{
		Date:     "날짜",
		High:     "최고기온(℃)",
		Low:      "최저기온(℃)",
		Mean:     "평균기온(℃)",
		Layout:   model.DateLayout,
		Required: []model.Metric{model.MetricHigh, model.MetricLow, model.MetricMean},
	}
}

// Column returns the source column name for metric m.
func (s Schema) Column(m model.Metric) string {
	switch m {
	case model.MetricHigh:
		return s.High
	case model.MetricLow:
		return s.Low
	case model.MetricMean:
		return s.Mean
	}
	return ""
}

func (s Schema) layout() string {
	if s.Layout == "" {
		return model.DateLayout
	}
	return s.Layout
}

func (s Schema) requires(m model.Metric) bool {
	for _, r := range s.Required {
		if r == m {
			return true
		}
	}
	return false
}

// Diagnostics reports what Normalize recovered from.
type Diagnostics struct {
	Input        int                     `json:"input"`
	Kept         int                     `json:"kept"`
	SkippedDates int                     `json:"skipped_dates"`
	Duplicates   int                     `json:"duplicates"`
	DateErrors   []*model.DateParseError `json:"-"`
	Missing      map[model.Metric]int    `json:"missing"`
}

// Warnings renders the diagnostics as human-readable warning lines.
func (d Diagnostics) Warnings() []string {
	var out []string
	if d.SkippedDates > 0 {
		msg := fmt.Sprintf("%d record(s) skipped: unparseable date", d.SkippedDates)
		if len(d.DateErrors) > 0 {
			msg += " (first: " + d.DateErrors[0].Error() + ")"
		}
		out = append(out, msg)
	}
	if d.Duplicates > 0 {
		out = append(out, fmt.Sprintf("%d duplicate date(s): last occurrence kept", d.Duplicates))
	}
	return out
}

// Normalize builds a TimeSeries from table. A missing date column or a
// missing required metric column aborts with *model.MissingColumnError.
// Bad dates drop the record; duplicate dates keep the last occurrence.
func Normalize(table Table, schema Schema) (*model.TimeSeries, Diagnostics, error) {
	diag := Diagnostics{
		Input:   len(table.Records),
		Missing: make(map[model.Metric]int, len(model.AllMetrics)),
	}

	present := columnSet(table)
	if schema.Date == "" || !present[schema.Date] {
		return nil, diag, &model.MissingColumnError{Column: schema.Date}
	}
	cols := make(map[model.Metric]string, len(model.AllMetrics))
	for _, m := range model.AllMetrics {
		name := schema.Column(m)
		if name != "" && present[name] {
			cols[m] = name
			continue
		}
		if schema.requires(m) {
			return nil, diag, &model.MissingColumnError{Column: name}
		}
	}

	recs := make([]model.TemperatureRecord, 0, len(table.Records))
	index := make(map[time.Time]int, len(table.Records))
	for i, row := range table.Records {
		date, err := parseDate(row[schema.Date], schema.layout())
		if err != nil {
			diag.SkippedDates++
			if len(diag.DateErrors) < maxDateErrorSamples {
				diag.DateErrors = append(diag.DateErrors, &model.DateParseError{Row: i + 1, Value: fmt.Sprint(row[schema.Date])})
			}
			continue
		}
		rec := model.TemperatureRecord{Date: date, High: math.NaN(), Low: math.NaN(), Mean: math.NaN()}
		for m, col := range cols {
			setValue(&rec, m, util.ParseValue(row[col]))
		}
		if j, dup := index[date]; dup {
			diag.Duplicates++
			recs[j] = rec
			continue
		}
		index[date] = len(recs)
		recs = append(recs, rec)
	}

	ts, err := model.NewTimeSeries(recs)
	if err != nil {
		return nil, diag, fmt.Errorf("normalize: %w", err)
	}
	diag.Kept = ts.Len()
	for _, rec := range recs {
		for _, m := range model.AllMetrics {
			if rec.IsMissing(m) {
				diag.Missing[m]++
			}
		}
	}

	metrics.RecordsNormalized.Add(float64(diag.Kept))
	if diag.SkippedDates > 0 {
		metrics.RecordsSkipped.WithLabelValues(metrics.ReasonBadDate).Add(float64(diag.SkippedDates))
	}
	if diag.Duplicates > 0 {
		metrics.RecordsSkipped.WithLabelValues(metrics.ReasonDuplicate).Add(float64(diag.Duplicates))
	}
	slog.Info("normalized time series",
		"input", diag.Input,
		"kept", diag.Kept,
		"skipped_dates", diag.SkippedDates,
		"duplicates", diag.Duplicates,
		"missing_high", diag.Missing[model.MetricHigh],
		"missing_low", diag.Missing[model.MetricLow],
		"missing_mean", diag.Missing[model.MetricMean],
	)
	return ts, diag, nil
}

// ToTable renders ts back into a raw table under schema. Missing values
// become nil, so Normalize(ToTable(ts, s), s) reproduces ts.
func ToTable(ts *model.TimeSeries, schema Schema) Table {
	t := Table{Columns: []string{schema.Date}}
	for _, m := range model.AllMetrics {
		if c := schema.Column(m); c != "" {
			t.Columns = append(t.Columns, c)
		}
	}
	t.Records = make([]Record, 0, ts.Len())
	for _, rec := range ts.Records() {
		row := Record{schema.Date: rec.Date.Format(schema.layout())}
		for _, m := range model.AllMetrics {
			c := schema.Column(m)
			if c == "" {
				continue
			}
			if rec.IsMissing(m) {
				row[c] = nil
			} else {
				row[c] = rec.Value(m)
			}
		}
		t.Records = append(t.Records, row)
	}
	return t
}

// ─── helpers ──────────────────────────────────────────────────────────────────

// columnSet returns the declared columns, or the union of record keys
// when the table declares none.
func columnSet(t Table) map[string]bool {
	set := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		set[c] = true
	}
	if len(t.Columns) > 0 {
		return set
	}
	for _, r := range t.Records {
		for k := range r {
			set[k] = true
		}
	}
	return set
}

func parseDate(v any, layout string) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, fmt.Errorf("zero time")
		}
		return model.DateOf(x), nil
	case string:
		t, err := time.Parse(layout, strings.TrimSpace(x))
		if err != nil {
			return time.Time{}, err
		}
		return model.DateOf(t), nil
	}
	return time.Time{}, fmt.Errorf("unsupported date value %T", v)
}

func setValue(r *model.TemperatureRecord, m model.Metric, v float64) {
	switch m {
	case model.MetricHigh:
		r.High = v
	case model.MetricLow:
		r.Low = v
	case model.MetricMean:
		r.Mean = v
	}
}
