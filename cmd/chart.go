package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/almanac/internal/analyze"
	"github.com/derickschaefer/almanac/internal/chart"
	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/report"
	"github.com/derickschaefer/almanac/internal/transform"
)

const unitCelsius = "℃"

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render temperature history as an ASCII chart",
	Long: `Chart commands draw to the terminal. Width auto-detects from $COLUMNS
(falls back to 80); override with --width.`,
}

var (
	chartWidth   int
	chartHeight  int
	chartMaxBars int
	chartMetric  string
	chartDate    string
	chartYears   string
)

// ─── chart day ───────────────────────────────────────────────────────────────

var chartDayCmd = &cobra.Command{
	Use:   "day",
	Short: "One bar per year for the target's calendar day, target highlighted",
	Example: `  almanac chart day --date 2024-07-15
  almanac chart day --date 2024-01-20 --metric low --years 1980-`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		metric, err := model.ParseMetric(chartMetric)
		if err != nil {
			return err
		}
		target, err := parseDateFlag("date", chartDate, report.Yesterday(time.Now()))
		if err != nil {
			return err
		}
		years, err := parseYearsFlag("years", chartYears)
		if err != nil {
			return err
		}
		ts, _, err := loadSeries(deps)
		if err != nil {
			return err
		}

		set := analyze.SameDayAs(ts, target, years)
		pts := make([]chart.Point, 0, set.Len())
		for _, r := range set.Records {
			pts = append(pts, chart.Point{
				Label:     strconv.Itoa(r.Date.Year()),
				Value:     r.Value(metric),
				Highlight: r.Date.Equal(model.DateOf(target)),
			})
		}
		title := fmt.Sprintf("%s on %s", metric, target.Format("01-02"))
		return withOutput(cmd, func(w io.Writer) error {
			return chart.Bar(w, title, pts, chart.BarOptions{
				Width:   chartWidth,
				MaxBars: chartMaxBars,
				Unit:    unitCelsius,
			})
		})
	},
}

// ─── chart yearly ────────────────────────────────────────────────────────────

var chartYearlyCmd = &cobra.Command{
	Use:   "yearly",
	Short: "One bar per year of the yearly mean",
	Example: `  almanac chart yearly
  almanac chart yearly --metric high --max-bars 30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		metric, err := model.ParseMetric(chartMetric)
		if err != nil {
			return err
		}
		ts, _, err := loadSeries(deps)
		if err != nil {
			return err
		}

		last := ts.Last().Date.Year()
		var pts []chart.Point
		for _, p := range transform.Points(transform.Yearly(ts), metric) {
			pts = append(pts, chart.Point{Label: strconv.Itoa(p.Year), Value: p.Value, Highlight: p.Year == last})
		}
		return withOutput(cmd, func(w io.Writer) error {
			return chart.Bar(w, "yearly "+string(metric), pts, chart.BarOptions{
				Width:   chartWidth,
				MaxBars: chartMaxBars,
				Unit:    unitCelsius,
			})
		})
	},
}

// ─── chart trend ─────────────────────────────────────────────────────────────

var chartTrendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Plot yearly means with the fitted line and predictions",
	Long: `Plots the yearly mean of --metric over the fit years with the fitted line
drawn as dots. Predicted years extend the plot along the line and the last
prediction is marked.`,
	Example: `  almanac chart trend
  almanac chart trend --metric high --fit 1990-2020 --predict 2026-2030 --height 16`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		metric, err := model.ParseMetric(chartMetric)
		if err != nil {
			return err
		}
		ts, _, err := loadSeries(deps)
		if err != nil {
			return err
		}
		opts, err := trendOptions(ts, []string{string(metric)}, 1)
		if err != nil {
			return err
		}
		secs, err := report.Trends(cmd.Context(), ts, opts)
		if err != nil {
			return err
		}
		sec := secs[0]
		if sec.Err != nil {
			return sec.Err
		}

		pts, overlay := trendPoints(sec)
		title := fmt.Sprintf("yearly %s, %+.2f%s/decade (R² %.2f)", metric, sec.Model.Slope*10, unitCelsius, sec.Model.R2)
		return withOutput(cmd, func(w io.Writer) error {
			return chart.Plot(w, title, pts, chart.PlotOptions{
				Width:   chartWidth,
				Height:  chartHeight,
				Overlay: overlay,
			})
		})
	},
}

// trendPoints lays out observed yearly means followed by predictions, with
// the fitted line evaluated at every year.
func trendPoints(sec report.TrendSection) ([]chart.Point, []float64) {
	var pts []chart.Point
	var overlay []float64
	for _, p := range sec.Yearly {
		pts = append(pts, chart.Point{Label: strconv.Itoa(p.Year), Value: p.Value})
		overlay = append(overlay, sec.Model.At(p.Year))
	}
	for i, p := range sec.Predictions {
		pts = append(pts, chart.Point{
			Label:     strconv.Itoa(p.Year),
			Value:     p.Value,
			Highlight: i == len(sec.Predictions)-1,
		})
		overlay = append(overlay, p.Value)
	}
	return pts, overlay
}

// withOutput runs draw against the --out file when one is set.
func withOutput(cmd *cobra.Command, draw func(io.Writer) error) (err error) {
	w, closeFn, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOutput(closeFn, &err)
	return draw(w)
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.AddCommand(chartDayCmd)
	chartCmd.AddCommand(chartYearlyCmd)
	chartCmd.AddCommand(chartTrendCmd)

	pf := chartCmd.PersistentFlags()
	pf.IntVar(&chartWidth, "width", 0,
		"chart width in characters (default: auto-detect from $COLUMNS, fallback 80)")
	pf.StringVar(&chartMetric, "metric", string(model.MetricHigh), "metric to chart: high|low|mean")

	chartDayCmd.Flags().StringVar(&chartDate, "date", "", "target date YYYY-MM-DD (default: yesterday)")
	chartDayCmd.Flags().StringVar(&chartYears, "years", "", "restrict years, e.g. 1990-2020")
	chartDayCmd.Flags().IntVar(&chartMaxBars, "max-bars", 0, "keep only the last N bars (0 = no limit)")
	chartYearlyCmd.Flags().IntVar(&chartMaxBars, "max-bars", 0, "keep only the last N bars (0 = no limit)")

	chartTrendCmd.Flags().IntVar(&chartHeight, "height", 12, "chart height in rows")
	chartTrendCmd.Flags().StringVar(&trendFit, "fit", "", "years to fit, e.g. 1990-2020 (default: whole series)")
	chartTrendCmd.Flags().StringVar(&trendPredict, "predict", "", "years to predict (default: three years after --fit)")
	chartTrendCmd.Flags().BoolVar(&trendFullYears, "full-years", false, "fit only years with at least 365 valid dates")
}
