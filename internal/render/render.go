// Package render converts Result values into human-readable or machine-parseable
// output. Every payload kind is first flattened into one or more Tables; the
// table, csv, tsv and md formats then share that form while json and jsonl
// encode the typed payload directly.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/derickschaefer/almanac/internal/analyze"
	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/report"
	"github.com/derickschaefer/almanac/internal/transform"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
)

// Formats lists every accepted --format value.
var Formats = []string{FormatTable, FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatMD}

// ValidFormat reports whether f is a known format.
func ValidFormat(f string) bool {
	for _, x := range Formats {
		if f == x {
			return true
		}
	}
	return false
}

// Table is a titled grid of cells. Numeric columns are right-aligned.
type Table struct {
	Title   string     `json:"title,omitempty"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	// Numeric marks right-aligned columns by index.
	Numeric []bool `json:"-"`
}

// Append adds one row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	}

	tables, err := Tables(result)
	if err != nil {
		return err
	}
	switch format {
	case FormatCSV:
		return renderDelimited(w, tables, ',')
	case FormatTSV:
		return renderDelimited(w, tables, '\t')
	case FormatMD:
		return renderMarkdown(w, tables)
	default:
		return renderTable(w, tables)
	}
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// renderJSONL writes one object per line: records for a series (the pipe
// format), one element per line for list payloads, the payload otherwise.
func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	each := func(n int, at func(i int) any) error {
		for i := 0; i < n; i++ {
			if err := enc.Encode(at(i)); err != nil {
				return err
			}
		}
		return nil
	}
	switch d := result.Data.(type) {
	case *model.TimeSeries:
		return each(d.Len(), func(i int) any { return d.At(i) })
	case []analyze.Pair:
		return each(len(d), func(i int) any { return d[i] })
	case []report.TrendSection:
		return each(len(d), func(i int) any { return d[i] })
	case []transform.YearMeans:
		return each(len(d), func(i int) any { return d[i] })
	case []transform.MonthMeans:
		return each(len(d), func(i int) any { return d[i] })
	default:
		return enc.Encode(result.Data)
	}
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, tables []Table) error {
	for i, t := range tables {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if t.Title != "" {
			fmt.Fprintln(w, t.Title)
		}
		if len(t.Rows) == 0 {
			fmt.Fprintln(w, "(no rows)")
			continue
		}
		tw := tablewriter.NewWriter(w)
		tw.SetHeader(t.Headers)
		tw.SetBorder(true)
		tw.SetRowLine(false)
		tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		tw.SetAlignment(tablewriter.ALIGN_LEFT)
		tw.SetAutoWrapText(false)
		tw.SetAutoFormatHeaders(false)
		if len(t.Numeric) > 0 {
			align := make([]int, len(t.Headers))
			for c := range align {
				align[c] = tablewriter.ALIGN_LEFT
				if c < len(t.Numeric) && t.Numeric[c] {
					align[c] = tablewriter.ALIGN_RIGHT
				}
			}
			tw.SetColumnAlignment(align)
		}
		tw.AppendBulk(t.Rows)
		tw.Render()
	}
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

// renderDelimited writes each table with its header; multiple tables are
// separated by a blank line and prefixed with a "# title" comment row.
func renderDelimited(w io.Writer, tables []Table, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep
	for i, t := range tables {
		if len(tables) > 1 {
			if i > 0 {
				cw.Flush()
				fmt.Fprintln(w)
			}
			if t.Title != "" {
				_ = cw.Write([]string{"# " + t.Title})
			}
		}
		_ = cw.Write(lowerAll(t.Headers))
		for _, row := range t.Rows {
			_ = cw.Write(row)
		}
	}
	cw.Flush()
	return cw.Error()
}

func lowerAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(strings.ReplaceAll(s, " ", "_"))
	}
	return out
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, tables []Table) error {
	for i, t := range tables {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if t.Title != "" {
			fmt.Fprintf(w, "### %s\n\n", mdEscape(t.Title))
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(escapeAll(t.Headers), " | "))
		seps := make([]string, len(t.Headers))
		for c := range seps {
			seps[c] = "---"
			if c < len(t.Numeric) && t.Numeric[c] {
				seps[c] = "---:"
			}
		}
		fmt.Fprintf(w, "|%s|\n", strings.Join(seps, "|"))
		for _, row := range t.Rows {
			fmt.Fprintf(w, "| %s |\n", strings.Join(escapeAll(row), " | "))
		}
	}
	return nil
}

func escapeAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = mdEscape(s)
	}
	return out
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings, and stats when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		fmt.Fprintf(w, "\n[%s • %d items • %dms",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
		)
		if result.Stats.Skipped > 0 {
			fmt.Fprintf(w, " • %d skipped", result.Stats.Skipped)
		}
		fmt.Fprintln(w, "]")
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// formatValue formats a temperature for display with one decimal place.
// Missing values (NaN) render as ".".
func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "."
	}
	s := fmt.Sprintf("%.1f", v)
	if s == "-0.0" {
		return "0.0"
	}
	return s
}

// formatSigned is formatValue with an explicit sign for differences.
func formatSigned(v float64) string {
	s := formatValue(v)
	if s != "." && s != "0.0" && !strings.HasPrefix(s, "-") {
		return "+" + s
	}
	return s
}

// formatPct formats a percentage with one decimal place.
func formatPct(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	return fmt.Sprintf("%.1f%%", v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
