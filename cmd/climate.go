package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/transform"
)

var climateCmd = &cobra.Command{
	Use:   "climate",
	Short: "Yearly and monthly mean temperatures",
}

var climateYearlyCmd = &cobra.Command{
	Use:   "yearly",
	Short: "Mean high, low and mean temperature per calendar year",
	Example: `  almanac climate yearly
  almanac climate yearly --format csv > yearly.csv`,
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
		years := transform.Yearly(ts)
		result := newResult(model.KindClimatology, "climate yearly", years, start)
		result.Stats.Items = len(years)
		return emit(cmd, deps, withDiagnostics(result, diag))
	},
}

var climateMonthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Mean temperatures per calendar month, pooled across all years",
	Example: `  almanac climate monthly
  almanac climate monthly --format md`,
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
		months := transform.Monthly(ts)
		result := newResult(model.KindClimatology, "climate monthly", months, start)
		result.Stats.Items = len(months)
		return emit(cmd, deps, withDiagnostics(result, diag))
	},
}

func init() {
	rootCmd.AddCommand(climateCmd)
	climateCmd.AddCommand(climateYearlyCmd)
	climateCmd.AddCommand(climateMonthlyCmd)
}
