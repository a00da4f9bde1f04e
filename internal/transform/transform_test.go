package transform_test

import (
	"math"
	"testing"
	"time"

	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/transform"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func date(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// daily builds one record per day from start, every metric equal to value(i).
func daily(t *testing.T, start string, n int, value func(i int) float64) *model.TimeSeries {
	t.Helper()
	d := date(start)
	recs := make([]model.TemperatureRecord, n)
	for i := range recs {
		v := value(i)
		recs[i] = model.TemperatureRecord{Date: d.AddDate(0, 0, i), High: v + 5, Low: v - 5, Mean: v}
	}
	ts, err := model.NewTimeSeries(recs)
	if err != nil {
		t.Fatalf("NewTimeSeries: %v", err)
	}
	return ts
}

// ─── Yearly ───────────────────────────────────────────────────────────────────

func TestYearlyMeans(t *testing.T) {
	// 2019-12-30 .. 2020-01-02: two days in each year.
	ts := daily(t, "2019-12-30", 4, func(i int) float64 { return float64(i) })
	years := transform.Yearly(ts)
	if len(years) != 2 {
		t.Fatalf("expected 2 years, got %d", len(years))
	}
	if years[0].Year != 2019 || years[0].Days != 2 || !approxEqual(years[0].Means.Value(model.MetricMean), 0.5, 1e-9) {
		t.Errorf("2019: unexpected %+v", years[0])
	}
	if !approxEqual(years[1].Means.Value(model.MetricHigh), 7.5, 1e-9) {
		t.Errorf("2020 high: expected 7.5, got %g", years[1].Means.Value(model.MetricHigh))
	}
}

func TestYearlySkipsNaN(t *testing.T) {
	ts := daily(t, "2020-01-01", 4, func(i int) float64 {
		if i == 1 {
			return math.NaN()
		}
		return float64(i)
	})
	years := transform.Yearly(ts)
	// (0 + 2 + 3) / 3
	if !approxEqual(years[0].Means.Value(model.MetricMean), 5.0/3, 1e-9) {
		t.Errorf("expected NaN skipped, got %g", years[0].Means.Value(model.MetricMean))
	}
}

func TestPoints(t *testing.T) {
	ts := daily(t, "2018-06-01", 3*366, func(i int) float64 { return 10 })
	pts := transform.Points(transform.Yearly(ts), model.MetricLow)
	if len(pts) == 0 || pts[0].Year != 2018 || pts[0].Value != 5 {
		t.Errorf("unexpected points %+v", pts)
	}
}

// ─── Monthly ──────────────────────────────────────────────────────────────────

func TestMonthlyPoolsYears(t *testing.T) {
	recs := []model.TemperatureRecord{
		{Date: date("2020-01-10"), High: 1, Low: 1, Mean: 1},
		{Date: date("2021-01-10"), High: 3, Low: 3, Mean: 3},
		{Date: date("2021-03-01"), High: 9, Low: 9, Mean: 9},
	}
	ts, _ := model.NewTimeSeries(recs)
	months := transform.Monthly(ts)
	if len(months) != 2 {
		t.Fatalf("expected 2 months with data, got %d", len(months))
	}
	if months[0].Month != time.January || months[0].Days != 2 || months[0].Means.Value(model.MetricMean) != 2 {
		t.Errorf("January: unexpected %+v", months[0])
	}
	if months[1].Month != time.March {
		t.Errorf("expected March second, got %s", months[1].Month)
	}
}

// ─── FullYears ────────────────────────────────────────────────────────────────

func TestFullYears(t *testing.T) {
	// 2019-07-01 .. 2021-12-31: only 2020 and 2021 are complete.
	ts := daily(t, "2019-07-01", 915, func(i int) float64 { return 1 })
	out, kept, err := transform.FullYears(ts, model.MetricMean, 0)
	if err != nil {
		t.Fatalf("FullYears: %v", err)
	}
	if len(kept) != 2 || kept[0] != 2020 || kept[1] != 2021 {
		t.Fatalf("expected [2020 2021], got %v", kept)
	}
	if out.First().Date.Year() != 2020 {
		t.Errorf("partial 2019 should be dropped, first is %s", out.First().Date.Format(model.DateLayout))
	}
}

func TestFullYearsCountsOnlyValidMetric(t *testing.T) {
	ts := daily(t, "2021-01-01", 365, func(i int) float64 {
		if i == 0 {
			return math.NaN()
		}
		return 1
	})
	_, kept, err := transform.FullYears(ts, model.MetricMean, 365)
	if err != nil {
		t.Fatalf("FullYears: %v", err)
	}
	if len(kept) != 0 {
		t.Errorf("one missing day should disqualify the year, got %v", kept)
	}
	_, kept, _ = transform.FullYears(ts, model.MetricMean, 364)
	if len(kept) != 1 {
		t.Errorf("lower threshold should keep 2021, got %v", kept)
	}
}

// ─── Between ──────────────────────────────────────────────────────────────────

func TestBetweenHalfOpen(t *testing.T) {
	ts := daily(t, "2024-01-01", 10, func(i int) float64 { return float64(i) })
	out, err := transform.Between(ts, date("2024-01-03"), date("2024-01-06"))
	if err != nil {
		t.Fatalf("Between: %v", err)
	}
	if out.Len() != 3 || out.First().Mean != 2 || out.Last().Mean != 4 {
		t.Errorf("expected Jan 3..5, got %d records", out.Len())
	}
	open, _ := transform.Between(ts, time.Time{}, date("2024-01-03"))
	if open.Len() != 2 {
		t.Errorf("open lower bound: expected 2, got %d", open.Len())
	}
	if _, err := transform.Between(ts, date("2024-01-06"), date("2024-01-03")); err == nil {
		t.Error("expected error for inverted window")
	}
}
