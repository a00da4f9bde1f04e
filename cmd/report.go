package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/report"
)

var (
	reportDate      string
	reportReference string
	reportYears     string
	reportDays      int
	reportRankBy    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Full analysis for one day: rankings, recent period and trends",
	Long: `Runs every analysis for the target date (default: yesterday):

  - same-day rankings, top-K lists, records and summary (as "day")
  - the window before --reference compared with history (as "period")
  - per-metric linear trends and predictions (as "trend")

A section that cannot be computed, such as a target date that is missing
from the data, is reported as a warning while the other sections still
print.`,
	Example: `  almanac report
  almanac report --date 2024-07-15 --days 14 --fit 1990-2020
  almanac report --format json --out report.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		req := report.Request{
			TopK:        deps.Config.TopK,
			WindowDays:  reportDays,
			FullYears:   trendFullYears,
			MinDays:     trendMinDays,
			Concurrency: deps.Config.Concurrency,
		}
		if req.WindowDays == 0 {
			req.WindowDays = deps.Config.WindowDays
		}
		if req.Target, err = parseDateFlag("date", reportDate, time.Time{}); err != nil {
			return err
		}
		if req.Reference, err = parseDateFlag("reference", reportReference, time.Time{}); err != nil {
			return err
		}
		if req.Years, err = parseYearsFlag("years", reportYears); err != nil {
			return err
		}
		if req.Fit, err = parseYearsFlag("fit", trendFit); err != nil {
			return err
		}
		if req.Predict, err = parseYearsFlag("predict", trendPredict); err != nil {
			return err
		}
		if req.RankBy, err = model.ParseMetric(reportRankBy); err != nil {
			return err
		}
		if req.Metrics, err = parseMetrics(trendMetrics); err != nil {
			return err
		}

		ts, diag, err := loadSeries(deps)
		if err != nil {
			return err
		}
		rep, err := report.Build(cmd.Context(), ts, req)
		if err != nil {
			return err
		}
		result := newResult(model.KindReport, "report", rep, start)
		result.Stats.Items = rep.Records
		result.Warnings = rep.Warnings()
		return emit(cmd, deps, withDiagnostics(result, diag))
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	f := reportCmd.Flags()
	f.StringVar(&reportDate, "date", "", "target date YYYY-MM-DD (default: yesterday)")
	f.StringVar(&reportReference, "reference", "", "day after the recent window (default: the day after --date)")
	f.StringVar(&reportYears, "years", "", "restrict same-day comparison years, e.g. 1990-2020")
	f.IntVar(&reportDays, "days", 0, "recent window length (default: window_days from config)")
	f.StringVar(&reportRankBy, "rank-by", string(model.MetricMean), "metric ranked in the period section")
	addTrendFlags(reportCmd)
}
