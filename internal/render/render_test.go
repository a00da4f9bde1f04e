package render_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/derickschaefer/almanac/internal/analyze"
	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/render"
	"github.com/derickschaefer/almanac/internal/report"
	"github.com/derickschaefer/almanac/internal/transform"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func date(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC) }

func series(t *testing.T) *model.TimeSeries {
	t.Helper()
	ts, err := model.NewTimeSeries([]model.TemperatureRecord{
		{Date: date(2023, 7, 15), High: 30.5, Low: 22.1, Mean: 26.0},
		{Date: date(2024, 7, 14), High: 31, Low: math.NaN(), Mean: 27},
		{Date: date(2024, 7, 15), High: 33.4, Low: 24.0, Mean: 28.6},
	})
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func result(kind string, data any) *model.Result {
	return &model.Result{Kind: kind, Command: "test", GeneratedAt: date(2024, 7, 16), Data: data}
}

func renderString(t *testing.T, r *model.Result, format string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := render.Render(&buf, r, format); err != nil {
		t.Fatalf("Render(%s): %v", format, err)
	}
	return buf.String()
}

// ─── Series ───────────────────────────────────────────────────────────────────

func TestSeriesTable(t *testing.T) {
	out := renderString(t, result(model.KindSeries, series(t)), render.FormatTable)
	for _, want := range []string{"DATE", "HIGH", "2024-07-15", "33.4", "30.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	// Missing low renders as "."
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "2024-07-14") && !strings.Contains(line, " . ") {
			t.Errorf("expected '.' for missing value: %q", line)
		}
	}
}

func TestSeriesCSV(t *testing.T) {
	out := renderString(t, result(model.KindSeries, series(t)), render.FormatCSV)
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("csv parse: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "date,high,low,mean" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[2][2] != "." {
		t.Errorf("missing low should be '.', got %q", rows[2][2])
	}
}

func TestSeriesTSV(t *testing.T) {
	out := renderString(t, result(model.KindSeries, series(t)), render.FormatTSV)
	first := strings.SplitN(out, "\n", 2)[0]
	if first != "date\thigh\tlow\tmean" {
		t.Errorf("unexpected TSV header %q", first)
	}
}

func TestSeriesJSONL(t *testing.T) {
	out := renderString(t, result(model.KindSeries, series(t)), render.FormatJSONL)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[1] != `{"date":"2024-07-14","high":31,"low":null,"mean":27}` {
		t.Errorf("unexpected pipe record %s", lines[1])
	}
}

func TestSeriesMarkdown(t *testing.T) {
	out := renderString(t, result(model.KindSeries, series(t)), render.FormatMD)
	if !strings.HasPrefix(out, "| DATE | HIGH | LOW | MEAN |\n|---|---:|---:|---:|\n") {
		t.Errorf("unexpected markdown header:\n%s", out)
	}
	if !strings.Contains(out, "| 2024-07-15 | 33.4 | 24.0 | 28.6 |") {
		t.Errorf("missing markdown row:\n%s", out)
	}
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func TestJSONEnvelopeWithNaN(t *testing.T) {
	rep, err := report.Build(context.Background(), series(t), report.Request{Target: date(2024, 7, 15)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out := renderString(t, result(model.KindReport, rep), render.FormatJSON)
	var env struct {
		Kind string         `json:"kind"`
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("report JSON should encode despite NaN values: %v\n%s", err, out)
	}
	if env.Kind != model.KindReport || env.Data["day"] == nil {
		t.Errorf("unexpected envelope %+v", env)
	}
}

// ─── Day / Period / Trend ─────────────────────────────────────────────────────

func TestDayTables(t *testing.T) {
	sec := report.Day(series(t), date(2024, 7, 15), model.YearRange{}, 5)
	tables, err := render.Tables(result(model.KindDayReport, sec))
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	if len(tables) != 5 {
		t.Fatalf("expected rankings, hottest, coldest, records and summary, got %d", len(tables))
	}
	rank := tables[0]
	if len(rank.Rows) != 2 || rank.Rows[0][3] != "1" || rank.Rows[0][5] != "0.0%" {
		t.Errorf("unexpected ranking rows %v", rank.Rows)
	}
	hottest := tables[1]
	if hottest.Rows[0][1] != "2024-07-15" || hottest.Rows[0][5] != "◀" {
		t.Errorf("target should lead the hottest list, got %v", hottest.Rows[0])
	}
	if tables[3].Rows[0][3] != "0.0" {
		t.Errorf("record high set by the target should be 0.0 away, got %v", tables[3].Rows[0])
	}
}

func TestPeriodTable(t *testing.T) {
	sec := report.Period(series(t), date(2024, 7, 16), 2, model.MetricMean)
	tbl := render.PeriodTable(sec)
	if len(tbl.Rows) < 3 {
		t.Fatalf("expected a row per metric, got %v", tbl.Rows)
	}
	if tbl.Rows[0][0] != "high" || tbl.Rows[0][1] != "32.2" {
		t.Errorf("unexpected recent high row %v", tbl.Rows[0])
	}
	if !strings.Contains(tbl.Title, "2024-07-14 to 2024-07-15") {
		t.Errorf("title should show the inclusive window, got %q", tbl.Title)
	}
}

func TestTrendTables(t *testing.T) {
	secs := []report.TrendSection{
		{
			Metric: model.MetricMean,
			Model:  model.TrendModel{Metric: model.MetricMean, Slope: 0.03, Intercept: -48.1, R2: 0.61, FitYears: model.YearRange{From: 1990, To: 2020}, Points: 31},
			Predictions: []model.YearValue{
				{Year: 2026, Value: 12.68},
			},
		},
		{Metric: model.MetricLow, Error: "low: insufficient data (1 points)"},
	}
	tables := render.TrendTables(secs)
	if len(tables) != 2 {
		t.Fatalf("expected fits and predictions, got %d", len(tables))
	}
	fit := tables[0].Rows[0]
	if fit[1] != "1990-2020" || fit[3] != "+0.3" || fit[5] != "0.610" {
		t.Errorf("unexpected fit row %v", fit)
	}
	if tables[0].Rows[1][6] == "" {
		t.Errorf("failed fit should carry its error, got %v", tables[0].Rows[1])
	}
	if tables[1].Rows[0][2] != "12.7" {
		t.Errorf("unexpected prediction %v", tables[1].Rows[0])
	}
}

// ─── Climatology / misc ───────────────────────────────────────────────────────

func TestClimatologyTables(t *testing.T) {
	ts := series(t)
	yearly := renderString(t, result(model.KindClimatology, transform.Yearly(ts)), render.FormatCSV)
	if !strings.HasPrefix(yearly, "year,days,high,low,mean\n2023,1,30.5,22.1,26.0\n") {
		t.Errorf("unexpected yearly csv:\n%s", yearly)
	}
	monthly := renderString(t, result(model.KindClimatology, transform.Monthly(ts)), render.FormatTable)
	if !strings.Contains(monthly, "Jul") {
		t.Errorf("monthly table should name the month:\n%s", monthly)
	}
}

func TestPairsTable(t *testing.T) {
	set := analyze.SameDay(series(t), time.July, 15, model.YearRange{})
	tbl := render.PairsTable(analyze.Pairs(set, date(2024, 7, 15)))
	if len(tbl.Rows) != 2 || tbl.Rows[1][4] == "" || tbl.Rows[1][3] != "9.4" {
		t.Errorf("unexpected pairs %v", tbl.Rows)
	}
}

func TestMultipleTablesCSV(t *testing.T) {
	tables := []render.Table{
		{Title: "a", Headers: []string{"X"}, Rows: [][]string{{"1"}}},
		{Title: "b", Headers: []string{"Y"}, Rows: [][]string{{"2"}}},
	}
	out := renderString(t, result(model.KindTable, tables), render.FormatCSV)
	if out != "# a\nx\n1\n\n# b\ny\n2\n" {
		t.Errorf("unexpected multi-table csv %q", out)
	}
}

func TestUnknownPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := render.Render(&buf, result("mystery", 42), render.FormatTable); err == nil {
		t.Error("expected error for a payload without a table form")
	}
	if err := render.Render(&buf, result("mystery", 42), render.FormatJSON); err != nil {
		t.Errorf("json should encode any payload: %v", err)
	}
}

func TestValidFormat(t *testing.T) {
	for _, f := range render.Formats {
		if !render.ValidFormat(f) {
			t.Errorf("%s should be valid", f)
		}
	}
	if render.ValidFormat("xml") {
		t.Error("xml should be rejected")
	}
}

func TestPrintFooter(t *testing.T) {
	var buf bytes.Buffer
	r := result(model.KindSeries, nil)
	r.Warnings = []string{"2 duplicate dates"}
	r.Stats = model.ResultStats{Items: 3, DurationMs: 4, Skipped: 2}
	render.PrintFooter(&buf, r, true)
	out := buf.String()
	if !strings.Contains(out, "⚠  2 duplicate dates") || !strings.Contains(out, "3 items") || !strings.Contains(out, "2 skipped") {
		t.Errorf("unexpected footer %q", out)
	}
}
