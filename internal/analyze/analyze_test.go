package analyze_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/derickschaefer/almanac/internal/analyze"
	"github.com/derickschaefer/almanac/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// rec builds a record with every metric set to v.
func rec(t time.Time, v float64) model.TemperatureRecord {
	return model.TemperatureRecord{Date: t, High: v, Low: v, Mean: v}
}

func series(t *testing.T, recs ...model.TemperatureRecord) *model.TimeSeries {
	t.Helper()
	ts, err := model.NewTimeSeries(recs)
	if err != nil {
		t.Fatalf("NewTimeSeries: %v", err)
	}
	return ts
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// julySeries is the three-year 07-15 example: 30, 35, 28.
func julySeries(t *testing.T) *model.TimeSeries {
	return series(t,
		model.TemperatureRecord{Date: date(2020, 7, 15), High: 30, Low: 20, Mean: 25},
		model.TemperatureRecord{Date: date(2021, 7, 15), High: 35, Low: 22, Mean: 28},
		model.TemperatureRecord{Date: date(2022, 7, 15), High: 28, Low: 19, Mean: 23},
		model.TemperatureRecord{Date: date(2022, 7, 16), High: 40, Low: 30, Mean: 35},
	)
}

// ─── SameDay ──────────────────────────────────────────────────────────────────

func TestSameDayMatchesMonthDay(t *testing.T) {
	set := analyze.SameDay(julySeries(t), time.July, 15, model.YearRange{})
	if set.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", set.Len())
	}
	for _, r := range set.Records {
		if r.Date.Month() != time.July || r.Date.Day() != 15 {
			t.Errorf("unexpected record %s", r.Date.Format(model.DateLayout))
		}
	}
}

func TestSameDayYearRange(t *testing.T) {
	set := analyze.SameDay(julySeries(t), time.July, 15, model.YearRange{From: 2021})
	if set.Len() != 2 {
		t.Errorf("open upper bound: expected 2, got %d", set.Len())
	}
	set = analyze.SameDay(julySeries(t), time.July, 15, model.YearRange{From: 2020, To: 2020})
	if set.Len() != 1 || set.Records[0].Date.Year() != 2020 {
		t.Errorf("single year: unexpected %+v", set.Records)
	}
}

func TestSameDayLeapDay(t *testing.T) {
	ts := series(t,
		rec(date(2019, 2, 28), 1),
		rec(date(2019, 3, 1), 2),
		rec(date(2020, 2, 29), 3),
		rec(date(2021, 3, 1), 4),
	)
	set := analyze.SameDay(ts, time.February, 29, model.YearRange{})
	if set.Len() != 1 || set.Records[0].Date.Year() != 2020 {
		t.Fatalf("Feb 29 should match only 2020, got %+v", set.Records)
	}

	noLeap := series(t, rec(date(2019, 2, 28), 1), rec(date(2021, 3, 1), 4))
	empty := analyze.SameDay(noLeap, time.February, 29, model.YearRange{})
	if empty.Len() != 0 {
		t.Fatalf("expected empty set, got %d", empty.Len())
	}
	_, err := analyze.Rank(empty, date(2024, 2, 29), model.MetricHigh, model.Descending)
	if !errors.Is(err, model.ErrEmptyRankingSet) {
		t.Errorf("expected ErrEmptyRankingSet, got %v", err)
	}
}

func TestPairsFlagsTarget(t *testing.T) {
	ts := series(t,
		model.TemperatureRecord{Date: date(2020, 7, 15), High: 30, Low: 20, Mean: 25},
		model.TemperatureRecord{Date: date(2021, 7, 15), High: math.NaN(), Low: 22, Mean: 28},
		model.TemperatureRecord{Date: date(2022, 7, 15), High: 28, Low: 19, Mean: 23},
	)
	pairs := analyze.Pairs(analyze.SameDay(ts, time.July, 15, model.YearRange{}), date(2022, 7, 15))
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs (missing high dropped), got %d", len(pairs))
	}
	if pairs[0].Target || !pairs[1].Target {
		t.Errorf("target flag wrong: %+v", pairs)
	}
}

// ─── Rank ─────────────────────────────────────────────────────────────────────

func TestRankDescending(t *testing.T) {
	set := analyze.SameDay(julySeries(t), time.July, 15, model.YearRange{})

	// Descending order is 35 (2021), 30 (2020), 28 (2022).
	cases := []struct {
		target  time.Time
		rank    int
		percent float64
	}{
		{date(2021, 7, 15), 1, 0},
		{date(2020, 7, 15), 2, 100.0 / 3},
		{date(2022, 7, 15), 3, 200.0 / 3},
	}
	for _, c := range cases {
		rr, err := analyze.Rank(set, c.target, model.MetricHigh, model.Descending)
		if err != nil {
			t.Fatalf("Rank(%s): %v", c.target.Format(model.DateLayout), err)
		}
		if rr.Rank != c.rank || rr.Total != 3 {
			t.Errorf("%s: expected rank %d/3, got %d/%d", c.target.Format(model.DateLayout), c.rank, rr.Rank, rr.Total)
		}
		if !approxEqual(rr.Percentile, c.percent, 1e-9) {
			t.Errorf("%s: expected percentile %.4f, got %.4f", c.target.Format(model.DateLayout), c.percent, rr.Percentile)
		}
	}
}

func TestRankAscending(t *testing.T) {
	set := analyze.SameDay(julySeries(t), time.July, 15, model.YearRange{})
	rr, err := analyze.Rank(set, date(2022, 7, 15), model.MetricLow, model.Ascending)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if rr.Rank != 1 || rr.Percentile != 0 || rr.Value != 19 {
		t.Errorf("coldest low should be rank 1 at 0%%, got %+v", rr)
	}
}

func TestRankSingleRecord(t *testing.T) {
	ts := series(t, rec(date(2020, 1, 1), 5))
	set := analyze.SameDay(ts, time.January, 1, model.YearRange{})
	for _, dir := range []model.Direction{model.Descending, model.Ascending} {
		rr, err := analyze.Rank(set, date(2020, 1, 1), model.MetricMean, dir)
		if err != nil {
			t.Fatalf("Rank(%s): %v", dir, err)
		}
		if rr.Rank != 1 || rr.Total != 1 || rr.Percentile != 0 {
			t.Errorf("%s: expected 1/1 at 0%%, got %+v", dir, rr)
		}
	}
}

func TestRankTiesBrokenByDate(t *testing.T) {
	ts := series(t,
		rec(date(2019, 5, 1), 20),
		rec(date(2017, 5, 1), 20),
		rec(date(2018, 5, 1), 25),
	)
	set := analyze.SameDay(ts, time.May, 1, model.YearRange{})
	ranked := analyze.Ranked(set, model.MetricHigh, model.Descending)
	want := []int{2018, 2017, 2019}
	for i, y := range want {
		if got := ranked[i].Record.Date.Year(); got != y {
			t.Errorf("position %d: expected %d, got %d", i+1, y, got)
		}
	}
	asc := analyze.Ranked(set, model.MetricHigh, model.Ascending)
	if asc[0].Record.Date.Year() != 2017 || asc[1].Record.Date.Year() != 2019 {
		t.Errorf("ascending ties should keep date order, got %d,%d", asc[0].Record.Date.Year(), asc[1].Record.Date.Year())
	}
}

func TestRankedIsPermutation(t *testing.T) {
	var recs []model.TemperatureRecord
	for y := 1990; y < 2020; y++ {
		recs = append(recs, rec(date(y, 8, 1), float64((y*37)%11)))
	}
	set := analyze.SameDay(series(t, recs...), time.August, 1, model.YearRange{})
	for _, dir := range []model.Direction{model.Descending, model.Ascending} {
		ranked := analyze.Ranked(set, model.MetricHigh, dir)
		if len(ranked) != set.Len() {
			t.Fatalf("%s: expected %d ranked, got %d", dir, set.Len(), len(ranked))
		}
		seen := make(map[int]bool)
		for i, rr := range ranked {
			if rr.Rank != i+1 {
				t.Errorf("%s: position %d has rank %d", dir, i, rr.Rank)
			}
			if rr.Percentile < 0 || rr.Percentile >= 100 {
				t.Errorf("%s: percentile %g out of [0,100)", dir, rr.Percentile)
			}
			seen[rr.Record.Date.Year()] = true
		}
		if len(seen) != set.Len() {
			t.Errorf("%s: ranks do not cover every record", dir)
		}
	}
}

func TestRankExcludesMissing(t *testing.T) {
	ts := series(t,
		rec(date(2020, 7, 15), 30),
		model.TemperatureRecord{Date: date(2021, 7, 15), High: math.NaN(), Low: 1, Mean: 1},
	)
	set := analyze.SameDay(ts, time.July, 15, model.YearRange{})
	rr, err := analyze.Rank(set, date(2020, 7, 15), model.MetricHigh, model.Descending)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if rr.Total != 1 {
		t.Errorf("missing value should be excluded, total %d", rr.Total)
	}
	_, err = analyze.Rank(set, date(2021, 7, 15), model.MetricHigh, model.Descending)
	if !errors.Is(err, model.ErrTargetNotFound) {
		t.Errorf("expected ErrTargetNotFound for missing target value, got %v", err)
	}
}

func TestTopKDefaultsAndClamps(t *testing.T) {
	var recs []model.TemperatureRecord
	for y := 2000; y < 2010; y++ {
		recs = append(recs, rec(date(y, 1, 1), float64(y-2000)))
	}
	set := analyze.SameDay(series(t, recs...), time.January, 1, model.YearRange{})
	top := analyze.TopK(set, model.MetricHigh, model.Descending, 0)
	if len(top) != analyze.DefaultTopK {
		t.Fatalf("expected %d, got %d", analyze.DefaultTopK, len(top))
	}
	if top[0].Value != 9 || top[4].Value != 5 {
		t.Errorf("unexpected top values %g..%g", top[0].Value, top[4].Value)
	}
	if got := analyze.TopK(set, model.MetricHigh, model.Descending, 50); len(got) != 10 {
		t.Errorf("k larger than set: expected 10, got %d", len(got))
	}
}

func TestRecordFor(t *testing.T) {
	set := analyze.SameDay(julySeries(t), time.July, 15, model.YearRange{})
	ex, err := analyze.RecordFor(set, model.MetricHigh, model.Descending, 28)
	if err != nil {
		t.Fatalf("RecordFor: %v", err)
	}
	if ex.Value != 35 || ex.Date.Year() != 2021 || float64(ex.Delta) != 7 {
		t.Errorf("unexpected record high %+v", ex)
	}
	low, err := analyze.RecordFor(set, model.MetricLow, model.Ascending, 22)
	if err != nil {
		t.Fatalf("RecordFor low: %v", err)
	}
	if low.Value != 19 || float64(low.Delta) != -3 {
		t.Errorf("unexpected record low %+v", low)
	}
	if _, err := analyze.RecordFor(model.SameDaySet{}, model.MetricHigh, model.Descending, 0); !errors.Is(err, model.ErrEmptyRankingSet) {
		t.Errorf("expected ErrEmptyRankingSet, got %v", err)
	}
}

// ─── Summarize ────────────────────────────────────────────────────────────────

func TestSummarize(t *testing.T) {
	ts := series(t,
		rec(date(2018, 3, 3), 1),
		rec(date(2019, 3, 3), 2),
		model.TemperatureRecord{Date: date(2020, 3, 3), High: math.NaN(), Low: 0, Mean: 0},
		rec(date(2021, 3, 3), 4),
		rec(date(2022, 3, 3), 5),
	)
	s := analyze.Summarize(analyze.SameDay(ts, time.March, 3, model.YearRange{}), model.MetricHigh)
	if s.Count != 5 || s.Missing != 1 {
		t.Errorf("counts: got %d/%d", s.Count, s.Missing)
	}
	if !approxEqual(float64(s.MissingPct), 20, 1e-9) {
		t.Errorf("MissingPct: expected 20, got %g", s.MissingPct)
	}
	if !approxEqual(float64(s.Mean), 3, 1e-9) {
		t.Errorf("Mean: expected 3, got %g", s.Mean)
	}
	if s.Min != 1 || s.Max != 5 {
		t.Errorf("Min/Max: got %g/%g", s.Min, s.Max)
	}
	if !approxEqual(float64(s.Median), 3, 1e-9) {
		t.Errorf("Median: expected 3, got %g", s.Median)
	}
	if s.First != 1 || s.Last != 5 || s.Change != 4 {
		t.Errorf("First/Last/Change: got %g/%g/%g", s.First, s.Last, s.Change)
	}
}

func TestSummarizeAllMissing(t *testing.T) {
	ts := series(t, model.TemperatureRecord{Date: date(2020, 1, 1), High: math.NaN(), Low: 1, Mean: 1})
	s := analyze.Summarize(analyze.SameDay(ts, time.January, 1, model.YearRange{}), model.MetricHigh)
	if !s.Mean.IsNaN() || !s.Max.IsNaN() {
		t.Errorf("expected NaN stats, got %+v", s)
	}
}

// ─── Period ───────────────────────────────────────────────────────────────────

// periodSeries has July 1-3 in 2021 (Jul 2 missing), 2022 and 2023.
func periodSeries(t *testing.T) *model.TimeSeries {
	return series(t,
		rec(date(2021, 7, 1), 10),
		model.TemperatureRecord{Date: date(2021, 7, 2), High: math.NaN(), Low: math.NaN(), Mean: math.NaN()},
		rec(date(2021, 7, 3), 20),
		rec(date(2021, 7, 10), 99),
		rec(date(2022, 7, 1), 30),
		rec(date(2022, 7, 2), 40),
		rec(date(2022, 7, 3), 50),
		rec(date(2023, 7, 1), 25),
		rec(date(2023, 7, 2), 25),
		rec(date(2023, 7, 3), 25),
	)
}

func TestPeriodTwoLevelMean(t *testing.T) {
	res, err := analyze.Period(periodSeries(t), date(2023, 7, 4), 3, model.MetricMean)
	if err != nil {
		t.Fatalf("Period: %v", err)
	}
	if res.RecentCount != 3 || !approxEqual(res.Recent.Value(model.MetricMean), 25, 1e-9) {
		t.Errorf("recent: expected 3 records at 25, got %d at %g", res.RecentCount, res.Recent.Value(model.MetricMean))
	}
	if res.Groups != 3 {
		t.Errorf("expected 3 calendar groups, got %d", res.Groups)
	}

	// Group means: Jul 1 = 65/3, Jul 2 = 32.5 (missing day excluded), Jul 3 = 95/3.
	want := (65.0/3 + 32.5 + 95.0/3) / 3
	got := res.Historical.Value(model.MetricMean)
	if !approxEqual(got, want, 1e-9) {
		t.Errorf("historical mean: expected %.6f, got %.6f", want, got)
	}
	flat := (10.0 + 20 + 30 + 40 + 50 + 25 + 25 + 25) / 8
	if approxEqual(got, flat, 1e-6) {
		t.Errorf("two-level mean should differ from flat pool mean %.6f", flat)
	}
	if !approxEqual(res.Diff(model.MetricMean), 25-want, 1e-9) {
		t.Errorf("Diff: got %g", res.Diff(model.MetricMean))
	}

	// Only Jul 1 (21.67) is strictly below 25.
	if res.Less != 1 || res.Total != 3 || res.Rank != 2 {
		t.Errorf("expected less=1 total=3 rank=2, got %d/%d/%d", res.Less, res.Total, res.Rank)
	}
	if !approxEqual(float64(res.Percentile), 100.0/3, 1e-9) || !approxEqual(float64(res.TopPercent), 200.0/3, 1e-9) {
		t.Errorf("percentile: got %g / top %g", res.Percentile, res.TopPercent)
	}
}

func TestPeriodTieIsNotLess(t *testing.T) {
	// Recent mean is (24+25+26)/3 = 25 and the Jul 2 group mean is exactly 25.
	ts := series(t,
		rec(date(2021, 7, 1), 20),
		rec(date(2021, 7, 2), 25),
		rec(date(2021, 7, 3), 40),
		rec(date(2022, 7, 1), 30),
		rec(date(2022, 7, 2), 25),
		rec(date(2022, 7, 3), 30),
		rec(date(2023, 7, 1), 24),
		rec(date(2023, 7, 2), 25),
		rec(date(2023, 7, 3), 26),
	)
	res, err := analyze.Period(ts, date(2023, 7, 4), 3, model.MetricMean)
	if err != nil {
		t.Fatalf("Period: %v", err)
	}
	if res.Recent.Value(model.MetricMean) != 25 {
		t.Fatalf("recent mean: expected 25, got %g", res.Recent.Value(model.MetricMean))
	}
	// Jul 1 = 74/3 is below, Jul 2 = 25 ties, Jul 3 = 32 is above.
	if res.Less != 1 || res.Total != 3 {
		t.Errorf("tied group must not count as less: got less=%d total=%d", res.Less, res.Total)
	}
	if res.Rank != res.Total-res.Less {
		t.Errorf("rank %d should be total-less = %d", res.Rank, res.Total-res.Less)
	}
	pct := float64(res.Percentile)
	if !approxEqual(pct, 100.0/3, 1e-9) || !approxEqual(float64(res.TopPercent), 100-pct, 1e-9) {
		t.Errorf("percentile %g / top %g", res.Percentile, res.TopPercent)
	}
}

func TestPeriodTotalCountsGroupsWithoutRankValue(t *testing.T) {
	noHigh := func(d time.Time, v float64) model.TemperatureRecord {
		r := rec(d, v)
		r.High = math.NaN()
		return r
	}
	ts := series(t,
		rec(date(2022, 7, 1), 10),
		noHigh(date(2022, 7, 2), 12),
		rec(date(2022, 7, 3), 40),
		rec(date(2023, 7, 1), 20),
		noHigh(date(2023, 7, 2), 22),
		rec(date(2023, 7, 3), 30),
	)
	res, err := analyze.Period(ts, date(2023, 7, 4), 3, model.MetricHigh)
	if err != nil {
		t.Fatalf("Period: %v", err)
	}
	if res.Recent.Value(model.MetricHigh) != 25 {
		t.Fatalf("recent high: expected 25, got %g", res.Recent.Value(model.MetricHigh))
	}
	// Jul 2 has no high in any year; it still counts as a group.
	if res.Groups != 3 || res.Total != 3 || res.Less != 1 || res.Rank != 2 {
		t.Errorf("expected groups=3 total=3 less=1 rank=2, got %d/%d/%d/%d", res.Groups, res.Total, res.Less, res.Rank)
	}
}

func TestPeriodEmptyWindow(t *testing.T) {
	res, err := analyze.Period(periodSeries(t), date(2030, 1, 1), 7, model.MetricMean)
	if !errors.Is(err, model.ErrEmptyWindow) {
		t.Fatalf("expected ErrEmptyWindow, got %v", err)
	}
	if !res.NoData || res.RecentCount != 0 {
		t.Errorf("expected NoData result, got %+v", res)
	}
	if !math.IsNaN(res.Recent.Value(model.MetricMean)) {
		t.Errorf("recent mean should be NaN, got %g", res.Recent.Value(model.MetricMean))
	}
}

func TestPeriodWindowIsHalfOpen(t *testing.T) {
	// Reference 2021-07-03 with one day covers only 2021-07-02, which is all NaN.
	_, err := analyze.Period(periodSeries(t), date(2021, 7, 3), 1, model.MetricMean)
	if !errors.Is(err, model.ErrEmptyWindow) {
		t.Errorf("all-missing window should be empty, got %v", err)
	}
	res, err := analyze.Period(periodSeries(t), date(2021, 7, 4), 1, model.MetricMean)
	if err != nil {
		t.Fatalf("Period: %v", err)
	}
	if res.RecentCount != 1 || !approxEqual(res.Recent.Value(model.MetricMean), 20, 1e-9) {
		t.Errorf("expected only 2021-07-03, got %d at %g", res.RecentCount, res.Recent.Value(model.MetricMean))
	}
}

func TestPeriodRejectsZeroDays(t *testing.T) {
	if _, err := analyze.Period(periodSeries(t), date(2023, 7, 4), 0, model.MetricMean); err == nil {
		t.Error("expected error for days=0")
	}
}

// ─── Trend ────────────────────────────────────────────────────────────────────

func TestFitCollinear(t *testing.T) {
	pts := []model.YearValue{{Year: 2018, Value: 10}, {Year: 2019, Value: 12}, {Year: 2020, Value: 14}}
	m, err := analyze.Fit(pts, model.YearRange{}, model.MetricMean)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !approxEqual(m.Slope, 2, 1e-9) {
		t.Errorf("slope: expected 2, got %g", m.Slope)
	}
	// 12 = 2*2019 + b  →  b = -4026.
	if !approxEqual(m.Intercept, -4026, 1e-6) {
		t.Errorf("intercept: expected -4026, got %g", m.Intercept)
	}
	if !approxEqual(m.R2, 1, 1e-12) {
		t.Errorf("R2: expected 1, got %g", m.R2)
	}
	if m.Points != 3 {
		t.Errorf("points: expected 3, got %d", m.Points)
	}

	pred, err := analyze.Predict(m, model.YearRange{From: 2021, To: 2023})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(pred) != 3 || pred[0].Year != 2021 || !approxEqual(pred[0].Value, 16, 1e-6) {
		t.Errorf("expected 2021 → 16, got %+v", pred)
	}
	if !approxEqual(pred[2].Value, 20, 1e-6) {
		t.Errorf("expected 2023 → 20, got %g", pred[2].Value)
	}
}

func TestFitRestrictsToRangeAndSkipsNaN(t *testing.T) {
	pts := []model.YearValue{
		{Year: 1990, Value: 500},
		{Year: 2000, Value: 1},
		{Year: 2001, Value: math.NaN()},
		{Year: 2002, Value: 3},
	}
	m, err := analyze.Fit(pts, model.YearRange{From: 2000, To: 2010}, model.MetricHigh)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if m.Points != 2 || !approxEqual(m.Slope, 1, 1e-9) {
		t.Errorf("expected 2 points slope 1, got %d points slope %g", m.Points, m.Slope)
	}
}

func TestFitInsufficientData(t *testing.T) {
	cases := [][]model.YearValue{
		nil,
		{{Year: 2000, Value: 1}},
		{{Year: 2000, Value: 1}, {Year: 2001, Value: math.NaN()}},
		{{Year: 2000, Value: 1}, {Year: 2000, Value: 2}},
	}
	for i, pts := range cases {
		_, err := analyze.Fit(pts, model.YearRange{}, model.MetricLow)
		var ide *model.InsufficientDataError
		if !errors.As(err, &ide) {
			t.Errorf("case %d: expected InsufficientDataError, got %v", i, err)
			continue
		}
		if !errors.Is(err, model.ErrInsufficientData) {
			t.Errorf("case %d: errors.Is(ErrInsufficientData) should match", i)
		}
	}
}

func TestPredictRequiresBoundedRange(t *testing.T) {
	m := model.TrendModel{Slope: 1}
	if _, err := analyze.Predict(m, model.YearRange{From: 2020}); err == nil {
		t.Error("expected error for open range")
	}
	if _, err := analyze.Predict(m, model.YearRange{From: 2030, To: 2020}); err == nil {
		t.Error("expected error for inverted range")
	}
}
