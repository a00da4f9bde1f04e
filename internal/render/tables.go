package render

import (
	"fmt"
	"strconv"
	"time"

	"github.com/derickschaefer/almanac/internal/analyze"
	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/report"
	"github.com/derickschaefer/almanac/internal/transform"
)

// Tables flattens a result payload into display tables.
func Tables(result *model.Result) ([]Table, error) {
	switch d := result.Data.(type) {
	case *model.TimeSeries:
		return []Table{SeriesTable(d)}, nil
	case *report.DaySection:
		return DayTables(d), nil
	case []analyze.Pair:
		return []Table{PairsTable(d)}, nil
	case *report.PeriodSection:
		return []Table{PeriodTable(d)}, nil
	case []report.TrendSection:
		return TrendTables(d), nil
	case []transform.YearMeans:
		return []Table{YearlyTable(d)}, nil
	case []transform.MonthMeans:
		return []Table{MonthlyTable(d)}, nil
	case *report.Report:
		return ReportTables(d), nil
	case Table:
		return []Table{d}, nil
	case []Table:
		return d, nil
	}
	return nil, fmt.Errorf("render: no table form for %s payload %T", result.Kind, result.Data)
}

var metricHeaders = []string{"HIGH", "LOW", "MEAN"}

// ─── Series ───────────────────────────────────────────────────────────────────

// SeriesTable lists every record.
func SeriesTable(ts *model.TimeSeries) Table {
	t := Table{
		Headers: append([]string{"DATE"}, metricHeaders...),
		Numeric: []bool{false, true, true, true},
	}
	for _, r := range ts.Records() {
		t.Append(formatDate(r.Date), formatValue(r.High), formatValue(r.Low), formatValue(r.Mean))
	}
	return t
}

// ─── Day ──────────────────────────────────────────────────────────────────────

// DayTables renders the same-day section as rankings, top-K lists, records
// and summary statistics.
func DayTables(d *report.DaySection) []Table {
	md := d.Target.Format("01-02")
	rank := Table{
		Title:   fmt.Sprintf("%s vs every %s (%d years, %s)", formatDate(d.Target), md, d.Count, d.Years),
		Headers: []string{"METRIC", "ORDER", "VALUE", "RANK", "TOTAL", "PERCENTILE"},
		Numeric: []bool{false, false, true, true, true, true},
	}
	for _, rr := range []*model.RankResult{d.High, d.Low} {
		if rr == nil {
			continue
		}
		rank.Append(string(rr.Metric), orderName(rr.Direction), formatValue(rr.Value),
			strconv.Itoa(rr.Rank), strconv.Itoa(rr.Total), formatPct(rr.Percentile))
	}

	tables := []Table{rank}
	tables = append(tables,
		rankedTable(fmt.Sprintf("Hottest %s (high)", md), d.Hottest, d.Target),
		rankedTable(fmt.Sprintf("Coldest %s (low)", md), d.Coldest, d.Target),
	)

	records := Table{
		Title:   "Records",
		Headers: []string{"METRIC", "DATE", "VALUE", "VS TARGET"},
		Numeric: []bool{false, false, true, true},
	}
	for _, ex := range []*analyze.Extreme{d.RecordHigh, d.RecordLow} {
		if ex == nil {
			continue
		}
		records.Append(string(ex.Metric)+" "+orderName(ex.Direction), formatDate(ex.Date),
			formatValue(ex.Value), formatSigned(float64(ex.Delta)))
	}
	tables = append(tables, records, SummaryTable(d.Summary))
	return tables
}

// rankedTable lists a top-K ordering, marking the target year.
func rankedTable(title string, recs []analyze.RankedRecord, target time.Time) Table {
	t := Table{
		Title:   title,
		Headers: append([]string{"RANK", "DATE"}, append(metricHeaders, "")...),
		Numeric: []bool{true, false, true, true, true, false},
	}
	for _, rr := range recs {
		mark := ""
		if rr.Record.Date.Equal(target) {
			mark = "◀"
		}
		r := rr.Record
		t.Append(strconv.Itoa(rr.Rank), formatDate(r.Date),
			formatValue(r.High), formatValue(r.Low), formatValue(r.Mean), mark)
	}
	return t
}

// SummaryTable lists descriptive statistics, one row per metric.
func SummaryTable(sums []analyze.Summary) Table {
	t := Table{
		Title:   "Summary",
		Headers: []string{"METRIC", "N", "MISSING", "MEAN", "STD", "MIN", "P25", "MEDIAN", "P75", "MAX", "CHANGE"},
		Numeric: []bool{false, true, true, true, true, true, true, true, true, true, true},
	}
	for _, s := range sums {
		t.Append(string(s.Metric), strconv.Itoa(s.Count-s.Missing), strconv.Itoa(s.Missing),
			formatValue(float64(s.Mean)), formatValue(float64(s.Std)), formatValue(float64(s.Min)),
			formatValue(float64(s.P25)), formatValue(float64(s.Median)), formatValue(float64(s.P75)),
			formatValue(float64(s.Max)), formatSigned(float64(s.Change)))
	}
	return t
}

// PairsTable lists the high/low pair of each year, marking the target.
func PairsTable(pairs []analyze.Pair) Table {
	t := Table{
		Title:   "High / low pairs",
		Headers: []string{"DATE", "HIGH", "LOW", "RANGE", ""},
		Numeric: []bool{false, true, true, true, false},
	}
	for _, p := range pairs {
		mark := ""
		if p.Target {
			mark = "◀ target"
		}
		t.Append(formatDate(p.Date), formatValue(float64(p.High)), formatValue(float64(p.Low)),
			formatValue(float64(p.High-p.Low)), mark)
	}
	return t
}

func orderName(d model.Direction) string {
	if d == model.Ascending {
		return "coldest first"
	}
	return "hottest first"
}

// ─── Period ───────────────────────────────────────────────────────────────────

// PeriodTable compares the recent window with the same calendar days
// historically, followed by the ranking of the recent rank-by mean.
func PeriodTable(p *report.PeriodSection) Table {
	t := Table{
		Title: fmt.Sprintf("%d days %s to %s vs %d calendar days across all years",
			p.Days, formatDate(p.From), formatDate(p.To.AddDate(0, 0, -1)), p.Groups),
		Headers: []string{"METRIC", "RECENT", "HISTORICAL", "DIFF"},
		Numeric: []bool{false, true, true, true},
	}
	if p.Days == 0 {
		t.Title = "Period comparison"
	}
	for _, m := range model.AllMetrics {
		t.Append(string(m), formatValue(p.Recent.Value(m)), formatValue(p.Historical.Value(m)), formatSigned(p.Diff(m)))
	}
	if p.Total > 0 && !p.Percentile.IsNaN() {
		t.Append(fmt.Sprintf("rank (%s)", p.RankBy), fmt.Sprintf("%d / %d", p.Rank, p.Total),
			"top "+formatPct(float64(p.TopPercent)), "")
	}
	return t
}

// ─── Trend ────────────────────────────────────────────────────────────────────

// TrendTables renders one row per fitted metric and the predictions.
func TrendTables(secs []report.TrendSection) []Table {
	fits := Table{
		Title:   "Linear trends",
		Headers: []string{"METRIC", "FIT YEARS", "POINTS", "SLOPE/DECADE", "INTERCEPT", "R2", "NOTE"},
		Numeric: []bool{false, false, true, true, true, true, false},
	}
	preds := Table{
		Title:   "Predictions",
		Headers: []string{"METRIC", "YEAR", "VALUE"},
		Numeric: []bool{false, true, true},
	}
	for _, s := range secs {
		m := s.Model
		if s.Err != nil || s.Error != "" {
			fits.Append(string(s.Metric), m.FitYears.String(), strconv.Itoa(m.Points), ".", ".", ".", s.Error)
			continue
		}
		fits.Append(string(s.Metric), m.FitYears.String(), strconv.Itoa(m.Points),
			formatSigned(m.Slope*10), fmt.Sprintf("%.2f", m.Intercept), fmt.Sprintf("%.3f", m.R2), "")
		for _, p := range s.Predictions {
			preds.Append(string(s.Metric), strconv.Itoa(p.Year), formatValue(p.Value))
		}
	}
	if len(preds.Rows) == 0 {
		return []Table{fits}
	}
	return []Table{fits, preds}
}

// ─── Climatology ──────────────────────────────────────────────────────────────

// YearlyTable lists per-year means.
func YearlyTable(years []transform.YearMeans) Table {
	t := Table{
		Title:   "Yearly means",
		Headers: append([]string{"YEAR", "DAYS"}, metricHeaders...),
		Numeric: []bool{false, true, true, true, true},
	}
	for _, y := range years {
		t.Append(strconv.Itoa(y.Year), strconv.Itoa(y.Days),
			formatValue(y.Means.Value(model.MetricHigh)), formatValue(y.Means.Value(model.MetricLow)),
			formatValue(y.Means.Value(model.MetricMean)))
	}
	return t
}

// MonthlyTable lists per-calendar-month means pooled across years.
func MonthlyTable(months []transform.MonthMeans) Table {
	t := Table{
		Title:   "Monthly climatology",
		Headers: append([]string{"MONTH", "DAYS"}, metricHeaders...),
		Numeric: []bool{false, true, true, true, true},
	}
	for _, m := range months {
		t.Append(m.Month.String()[:3], strconv.Itoa(m.Days),
			formatValue(m.Means.Value(model.MetricHigh)), formatValue(m.Means.Value(model.MetricLow)),
			formatValue(m.Means.Value(model.MetricMean)))
	}
	return t
}

// ─── Report ───────────────────────────────────────────────────────────────────

// ReportTables renders every section of a full report in order.
func ReportTables(r *report.Report) []Table {
	head := Table{
		Title:   "Almanac report",
		Headers: []string{"FIELD", "VALUE"},
	}
	head.Append("target", formatDate(r.Target))
	head.Append("reference", formatDate(r.Reference))
	head.Append("span", r.Span.String())
	head.Append("records", strconv.Itoa(r.Records))
	if r.Day != nil && r.Day.Record != nil {
		rec := r.Day.Record
		head.Append("target high / low / mean", fmt.Sprintf("%s / %s / %s",
			formatValue(rec.High), formatValue(rec.Low), formatValue(rec.Mean)))
	}

	tables := []Table{head}
	if r.Day != nil {
		tables = append(tables, DayTables(r.Day)...)
	}
	if r.Period != nil {
		tables = append(tables, PeriodTable(r.Period))
	}
	if len(r.Trends) > 0 {
		tables = append(tables, TrendTables(r.Trends)...)
	}
	return tables
}
