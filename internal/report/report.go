// Package report assembles one full analysis for a target date: same-day
// rankings, the recent-period comparison and per-metric trends.
//
// Statistical failures are scoped to the section that hit them and recorded
// on it; only invalid requests and context cancellation abort Build.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/derickschaefer/almanac/internal/analyze"
	"github.com/derickschaefer/almanac/internal/metrics"
	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/transform"
)

// DefaultPredictYears is how many years past the fit range Build predicts.
const DefaultPredictYears = 3

// Request configures Build. Zero fields take the defaults noted.
type Request struct {
	Now         time.Time       // zero → time.Now()
	Target      time.Time       // zero → the day before Now
	Reference   time.Time       // zero → Target + 1 day
	Years       model.YearRange // same-day comparison years; zero → all
	WindowDays  int             // zero → analyze.DefaultWindowDays
	TopK        int             // zero → analyze.DefaultTopK
	RankBy      model.Metric    // period ranking metric; zero → mean
	Fit         model.YearRange // zero bounds → series span
	Predict     model.YearRange // zero → fit.To+1 .. fit.To+3
	FullYears   bool            // fit only on years with MinDays valid dates
	MinDays     int             // zero → transform.MinDaysFullYear
	Metrics     []model.Metric  // trend metrics; nil → all
	Concurrency int             // trend fits in flight; zero → len(Metrics)
}

// Yesterday returns the calendar day before now.
func Yesterday(now time.Time) time.Time {
	return model.DateOf(now).AddDate(0, 0, -1)
}

// normalize fills defaults and validates r against ts.
func (r Request) normalize(ts *model.TimeSeries) (Request, error) {
	if ts.Len() == 0 {
		return r, errors.New("report: empty time series")
	}
	if r.Now.IsZero() {
		r.Now = time.Now()
	}
	if r.Target.IsZero() {
		r.Target = Yesterday(r.Now)
	}
	r.Target = model.DateOf(r.Target)
	if r.Reference.IsZero() {
		r.Reference = r.Target.AddDate(0, 0, 1)
	}
	r.Reference = model.DateOf(r.Reference)
	if r.WindowDays == 0 {
		r.WindowDays = analyze.DefaultWindowDays
	}
	if r.WindowDays < 1 {
		return r, fmt.Errorf("report: window must be ≥ 1 day, got %d", r.WindowDays)
	}
	if r.TopK <= 0 {
		r.TopK = analyze.DefaultTopK
	}
	if r.RankBy == "" {
		r.RankBy = model.MetricMean
	}
	if len(r.Metrics) == 0 {
		r.Metrics = model.AllMetrics
	}
	if r.Concurrency <= 0 {
		r.Concurrency = len(r.Metrics)
	}
	for _, yr := range []model.YearRange{r.Years, r.Fit, r.Predict} {
		if err := yr.Validate(); err != nil {
			return r, fmt.Errorf("report: %w", err)
		}
	}

	fit, predict, err := ResolveRanges(ts.YearSpan(), r.Fit, r.Predict)
	if err != nil {
		return r, fmt.Errorf("report: %w", err)
	}
	r.Fit, r.Predict = fit, predict
	return r, nil
}

// ResolveRanges bounds fit by the series span and defaults predict to the
// DefaultPredictYears after fit.
func ResolveRanges(span, fit, predict model.YearRange) (model.YearRange, model.YearRange, error) {
	if fit.From == 0 {
		fit.From = span.From
	}
	if fit.To == 0 {
		fit.To = span.To
	}
	if err := fit.Validate(); err != nil {
		return fit, predict, fmt.Errorf("fit %w", err)
	}
	if predict.From == 0 {
		predict.From = fit.To + 1
	}
	if predict.To == 0 {
		predict.To = predict.From + DefaultPredictYears - 1
	}
	if err := predict.Validate(); err != nil {
		return fit, predict, fmt.Errorf("predict %w", err)
	}
	return fit, predict, nil
}

// Report is the full analysis for one target date.
type Report struct {
	Target    time.Time       `json:"target"`
	Reference time.Time       `json:"reference"`
	Span      model.YearRange `json:"span"`
	Records   int             `json:"records"`
	Day       *DaySection     `json:"day"`
	Period    *PeriodSection  `json:"period"`
	Trends    []TrendSection  `json:"trends"`
}

// Warnings collects every section error as a message.
func (r *Report) Warnings() []string {
	var out []string
	if r.Day != nil {
		out = append(out, r.Day.Errors...)
	}
	if r.Period != nil && r.Period.Error != "" {
		out = append(out, r.Period.Error)
	}
	for _, t := range r.Trends {
		if t.Error != "" {
			out = append(out, t.Error)
		}
	}
	return out
}

// Build runs every analysis for req against ts.
func Build(ctx context.Context, ts *model.TimeSeries, req Request) (*Report, error) {
	req, err := req.normalize(ts)
	if err != nil {
		return nil, err
	}
	rep := &Report{
		Target:    req.Target,
		Reference: req.Reference,
		Span:      ts.YearSpan(),
		Records:   ts.Len(),
	}

	rep.Day = Day(ts, req.Target, req.Years, req.TopK)
	rep.Period = Period(ts, req.Reference, req.WindowDays, req.RankBy)
	rep.Trends, err = Trends(ctx, ts, TrendOptions{
		Metrics:     req.Metrics,
		Fit:         req.Fit,
		Predict:     req.Predict,
		FullYears:   req.FullYears,
		MinDays:     req.MinDays,
		Concurrency: req.Concurrency,
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("report built",
		"target", req.Target.Format(model.DateLayout),
		"reference", req.Reference.Format(model.DateLayout),
		"warnings", len(rep.Warnings()),
	)
	return rep, nil
}

// observe records a finished computation on the metrics registry.
func observe(component string, start time.Time, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, model.ErrEmptyRankingSet),
		errors.Is(err, model.ErrTargetNotFound),
		errors.Is(err, model.ErrInsufficientData),
		errors.Is(err, model.ErrEmptyWindow):
		outcome = metrics.OutcomeInsufficient
	default:
		outcome = metrics.OutcomeError
	}
	metrics.ObserveOutcome(component, time.Since(start).Seconds(), outcome)
}

// ─── Trends ───────────────────────────────────────────────────────────────────

// TrendOptions configures Trends. Fit and Predict must be bounded here;
// Build fills them from the series span.
type TrendOptions struct {
	Metrics     []model.Metric
	Fit         model.YearRange
	Predict     model.YearRange
	FullYears   bool
	MinDays     int
	Concurrency int
}

// TrendSection is the fitted line and predictions for one metric.
type TrendSection struct {
	Metric      model.Metric      `json:"metric"`
	Model       model.TrendModel  `json:"model"`
	Yearly      []model.YearValue `json:"yearly"`
	Predictions []model.YearValue `json:"predictions,omitempty"`
	KeptYears   []int             `json:"kept_years,omitempty"`
	Err         error             `json:"-"`
	Error       string            `json:"error,omitempty"`
}

// Trends fits one line per metric on yearly means. Fits run concurrently,
// at most opts.Concurrency at a time; each writes only its own section.
// A failed fit is recorded on its section; the returned error is non-nil
// only when ctx is cancelled.
func Trends(ctx context.Context, ts *model.TimeSeries, opts TrendOptions) ([]TrendSection, error) {
	if len(opts.Metrics) == 0 {
		opts.Metrics = model.AllMetrics
	}
	sections := make([]TrendSection, len(opts.Metrics))

	g, ctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, m := range opts.Metrics {
		i, m := i, m
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sections[i] = trend(ts, m, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("trends: %w", err)
	}
	return sections, nil
}

func trend(ts *model.TimeSeries, m model.Metric, opts TrendOptions) TrendSection {
	start := time.Now()
	sec := TrendSection{Metric: m}
	src := ts
	if opts.FullYears {
		full, kept, err := transform.FullYears(ts, m, opts.MinDays)
		if err != nil {
			return sec.fail(err, start)
		}
		src, sec.KeptYears = full, kept
	}
	sec.Yearly = inRange(transform.Points(transform.Yearly(src), m), opts.Fit)

	tm, err := analyze.Fit(sec.Yearly, opts.Fit, m)
	sec.Model = tm
	if err != nil {
		return sec.fail(err, start)
	}
	if opts.Predict.Bounded() {
		if sec.Predictions, err = analyze.Predict(tm, opts.Predict); err != nil {
			return sec.fail(err, start)
		}
	}
	observe("trend", start, nil)
	return sec
}

func (s TrendSection) fail(err error, start time.Time) TrendSection {
	s.Err = err
	s.Error = err.Error()
	observe("trend", start, err)
	slog.Info("trend section failed", "metric", s.Metric, "error", err)
	return s
}

func inRange(pts []model.YearValue, r model.YearRange) []model.YearValue {
	out := pts[:0:0]
	for _, p := range pts {
		if r.Contains(p.Year) {
			out = append(out, p)
		}
	}
	return out
}
