package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/report"
)

var (
	periodReference string
	periodDays      int
	periodRankBy    string
)

var periodCmd = &cobra.Command{
	Use:   "period",
	Short: "Compare the last N days with the same calendar days historically",
	Long: `Averages each metric over the window [reference-N, reference) and compares
it with the historical mean of the same calendar days across all years.

The historical mean is two-level: every calendar day's records are
averaged first, then the per-day means are averaged. The recent mean of
--rank-by is then ranked against those per-day means.`,
	Example: `  almanac period                          # the 7 days before today
  almanac period --reference 2024-08-01 --days 14
  almanac period --rank-by high --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		reference, err := parseDateFlag("reference", periodReference, model.DateOf(time.Now()))
		if err != nil {
			return err
		}
		rankBy, err := model.ParseMetric(periodRankBy)
		if err != nil {
			return err
		}
		days := periodDays
		if days == 0 {
			days = deps.Config.WindowDays
		}
		ts, diag, err := loadSeries(deps)
		if err != nil {
			return err
		}

		sec := report.Period(ts, reference, days, rankBy)
		if sec.Err != nil {
			return sec.Err
		}
		result := newResult(model.KindPeriod, "period", sec, start)
		result.Stats.Items = sec.RecentCount
		return emit(cmd, deps, withDiagnostics(result, diag))
	},
}

func init() {
	rootCmd.AddCommand(periodCmd)
	f := periodCmd.Flags()
	f.StringVar(&periodReference, "reference", "", "day after the window, YYYY-MM-DD (default: today)")
	f.IntVar(&periodDays, "days", 0, "window length in days (default: window_days from config)")
	f.StringVar(&periodRankBy, "rank-by", string(model.MetricMean), "metric to rank: high|low|mean")
}
