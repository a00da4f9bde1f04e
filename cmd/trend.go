package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/report"
)

var (
	trendFit       string
	trendPredict   string
	trendFullYears bool
	trendMinDays   int
	trendMetrics   []string
)

// trendOptions resolves the trend flags against the series span.
func trendOptions(ts *model.TimeSeries, names []string, concurrency int) (report.TrendOptions, error) {
	metrics, err := parseMetrics(names)
	if err != nil {
		return report.TrendOptions{}, err
	}
	fit, err := parseYearsFlag("fit", trendFit)
	if err != nil {
		return report.TrendOptions{}, err
	}
	predict, err := parseYearsFlag("predict", trendPredict)
	if err != nil {
		return report.TrendOptions{}, err
	}
	fit, predict, err = report.ResolveRanges(ts.YearSpan(), fit, predict)
	if err != nil {
		return report.TrendOptions{}, err
	}
	return report.TrendOptions{
		Metrics:     metrics,
		Fit:         fit,
		Predict:     predict,
		FullYears:   trendFullYears,
		MinDays:     trendMinDays,
		Concurrency: concurrency,
	}, nil
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Fit a linear trend to yearly means and predict future years",
	Long: `Averages each metric per calendar year, fits value = slope*year + intercept
by ordinary least squares over --fit years, and evaluates the line at
every --predict year. Metrics are fitted concurrently.

--full-years drops years with fewer than --min-days dates carrying the
metric, so a partial current year does not drag the line.`,
	Example: `  almanac trend
  almanac trend --fit 1990-2020 --predict 2026-2028
  almanac trend --metric mean --full-years --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		ts, diag, err := loadSeries(deps)
		if err != nil {
			return err
		}
		opts, err := trendOptions(ts, trendMetrics, deps.Config.Concurrency)
		if err != nil {
			return err
		}
		secs, err := report.Trends(cmd.Context(), ts, opts)
		if err != nil {
			return err
		}

		result := newResult(model.KindTrend, "trend", secs, start)
		for _, s := range secs {
			if s.Error != "" {
				result.Warnings = append(result.Warnings, s.Error)
				continue
			}
			result.Stats.Items++
		}
		return emit(cmd, deps, withDiagnostics(result, diag))
	},
}

// addTrendFlags registers the fit flags on cmd; chart trend shares them.
func addTrendFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&trendFit, "fit", "", "years to fit, e.g. 1990-2020 (default: whole series)")
	f.StringVar(&trendPredict, "predict", "", "years to predict, e.g. 2026-2028 (default: three years after --fit)")
	f.BoolVar(&trendFullYears, "full-years", false, "fit only years with at least --min-days valid dates")
	f.IntVar(&trendMinDays, "min-days", 0, "valid dates a year needs with --full-years (default 365)")
	f.StringSliceVar(&trendMetrics, "metric", nil, "metrics to fit: high,low,mean (default: all)")
}

func init() {
	rootCmd.AddCommand(trendCmd)
	addTrendFlags(trendCmd)
}
