package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/almanac/internal/app"
	"github.com/derickschaefer/almanac/internal/config"
	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/normalize"
	"github.com/derickschaefer/almanac/internal/pipeline"
	"github.com/derickschaefer/almanac/internal/render"
	"github.com/derickschaefer/almanac/internal/util"
)

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTable
}

// outputWriter returns def, or the --out file when one is set. The returned
// close function is always safe to call.
func outputWriter(def io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return def, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// closeOutput runs closeFn and stores its error in *err unless an earlier
// error is already there.
func closeOutput(closeFn func() error, err *error) {
	if cerr := closeFn(); cerr != nil && *err == nil {
		*err = fmt.Errorf("closing output: %w", cerr)
	}
}

// pipeOutput reports whether stdout is a pipe and no format was chosen by
// flag, environment or config.json.
func pipeOutput(cmd *cobra.Command, deps *app.Deps) bool {
	if globalFlags.Format != "" || globalFlags.Out != "" || deps.Config.Format != config.DefaultFormat {
		return false
	}
	return cmd.OutOrStdout() == os.Stdout && !pipeline.IsTTY()
}

// loadSeries reads and normalizes the resolved data source. Normalizer
// diagnostics come back as warnings.
func loadSeries(deps *app.Deps) (*model.TimeSeries, normalize.Diagnostics, error) {
	ts, diag, src, err := deps.LoadSeries()
	if err != nil {
		return nil, diag, err
	}
	if ts.Len() == 0 {
		return nil, diag, fmt.Errorf("%s: no usable records", src)
	}
	return ts, diag, nil
}

// newResult wraps data in a Result envelope timed from start.
func newResult(kind, command string, data any, start time.Time) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        data,
		Stats:       model.ResultStats{DurationMs: time.Since(start).Milliseconds()},
	}
}

// emit renders result in the effective format and prints the footer on
// stderr unless --quiet is set.
func emit(cmd *cobra.Command, deps *app.Deps, result *model.Result) (err error) {
	format := resolveFormat(deps.Config.Format)
	if !render.ValidFormat(format) {
		return fmt.Errorf("unknown format %q (use %s)", format, strings.Join(render.Formats, "|"))
	}
	w, closeFn, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOutput(closeFn, &err)
	if err := render.Render(w, result, format); err != nil {
		return err
	}
	if !deps.Config.Quiet {
		render.PrintFooter(cmd.ErrOrStderr(), result, deps.Config.Verbose)
	}
	return nil
}

// ─── Flag parsing ─────────────────────────────────────────────────────────────

// parseDateFlag parses a YYYY-MM-DD flag value; empty returns def.
func parseDateFlag(name, value string, def time.Time) (time.Time, error) {
	if value == "" {
		return def, nil
	}
	d, err := util.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

// parseYearsFlag parses a year range flag such as 1990-2020.
func parseYearsFlag(name, value string) (model.YearRange, error) {
	r, err := util.ParseYearRange(value)
	if err != nil {
		return r, fmt.Errorf("--%s: %w", name, err)
	}
	return r, nil
}

// parseMetrics parses metric names; empty means every metric.
func parseMetrics(names []string) ([]model.Metric, error) {
	if len(names) == 0 {
		return model.AllMetrics, nil
	}
	out := make([]model.Metric, 0, len(names))
	for _, n := range names {
		m, err := model.ParseMetric(strings.ToLower(strings.TrimSpace(n)))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// ─── KV table ─────────────────────────────────────────────────────────────────

// printKVTable renders a two-column key/value table.
func printKVTable(w io.Writer, rows [][]string) {
	tw := tablewriter.NewWriter(w)
	tw.SetBorder(false)
	tw.SetColumnSeparator(" ")
	tw.SetHeaderLine(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	tw.AppendBulk(rows)
	tw.Render()
}

// withDiagnostics attaches normalizer warnings and the skip count to result.
func withDiagnostics(result *model.Result, diag normalize.Diagnostics) *model.Result {
	result.Warnings = append(diag.Warnings(), result.Warnings...)
	result.Stats.Skipped = diag.SkippedDates + diag.Duplicates
	return result
}
