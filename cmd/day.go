package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/almanac/internal/analyze"
	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/report"
)

var (
	dayDate  string
	dayYears string
	dayTop   int
	dayPairs bool
)

var dayCmd = &cobra.Command{
	Use:   "day",
	Short: "Rank a day against the same calendar day in every other year",
	Long: `Collects every record sharing the target's month and day, then ranks the
target's high hottest-first and its low coldest-first. Also lists the
top-K hottest and coldest years, the all-time records with their distance
from the target, and summary statistics per metric.

Rank 1 is the most extreme; percentile is 100*(rank-1)/total, so the
record holder reads 0%. Equal values are ordered by date.

--pairs prints the high/low pair of every year instead, marking the target.`,
	Example: `  almanac day                                  # yesterday
  almanac day --date 2024-07-15 --top 10
  almanac day --date 2024-02-29 --years 1990-2020
  almanac day --date 2024-07-15 --pairs --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		target, err := parseDateFlag("date", dayDate, report.Yesterday(time.Now()))
		if err != nil {
			return err
		}
		years, err := parseYearsFlag("years", dayYears)
		if err != nil {
			return err
		}
		ts, diag, err := loadSeries(deps)
		if err != nil {
			return err
		}

		if dayPairs {
			set := analyze.SameDayAs(ts, target, years)
			if set.Len() == 0 {
				return fmt.Errorf("no records for %s: %w", target.Format("01-02"), model.ErrEmptyRankingSet)
			}
			pairs := analyze.Pairs(set, target)
			result := newResult(model.KindPairs, "day", pairs, start)
			result.Stats.Items = len(pairs)
			return emit(cmd, deps, withDiagnostics(result, diag))
		}

		top := dayTop
		if top <= 0 {
			top = deps.Config.TopK
		}
		sec := report.Day(ts, target, years, top)
		if sec.Count == 0 {
			return fmt.Errorf("no records for %s in %s: %w", target.Format("01-02"), years, model.ErrEmptyRankingSet)
		}
		result := newResult(model.KindDayReport, "day", sec, start)
		result.Stats.Items = sec.Count
		result.Warnings = sec.Errors
		return emit(cmd, deps, withDiagnostics(result, diag))
	},
}

func init() {
	rootCmd.AddCommand(dayCmd)
	f := dayCmd.Flags()
	f.StringVar(&dayDate, "date", "", "target date YYYY-MM-DD (default: yesterday)")
	f.StringVar(&dayYears, "years", "", "restrict comparison years, e.g. 1990-2020, 2000- or -2010")
	f.IntVar(&dayTop, "top", 0, "entries in the hottest/coldest lists (default: top_k from config)")
	f.BoolVar(&dayPairs, "pairs", false, "print the high/low pair of each year instead of rankings")
}
