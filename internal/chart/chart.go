// Package chart provides ASCII terminal charts over labelled points.
// Two renderers are available:
//
//   - Bar: horizontal bar chart, one bar per point, used for same-day
//     histories and yearly means
//   - Plot: multi-line ASCII chart with labelled axes and an optional
//     fitted line overlay, used for trends
//
// NaN values are gaps, never zeros. A point with Highlight set is marked
// so the target day or year stands out.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Point is one labelled value.
type Point struct {
	Label     string
	Value     float64
	Highlight bool
}

const (
	barRune       = '█'
	highlightRune = '▓'
	markerRune    = '●'
	overlayRune   = '·'
)

// ─── Bar ─────────────────────────────────────────────────────────────────────

// BarOptions controls horizontal bar chart rendering.
type BarOptions struct {
	// Width is the total character width available for the chart.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// MaxBars keeps only the last MaxBars points. 0 means no limit.
	MaxBars int
	// Unit is appended to the header, e.g. "℃".
	Unit string
}

// Bar renders a horizontal bar chart of pts to w, one bar per point.
// Highlighted bars are drawn with a lighter block and a trailing marker.
//
//	high on 07-16  2015 – 2024 (℃)
//	2015  30.1  ██████████
//	2024  33.4  ▓▓▓▓▓▓▓▓▓▓▓▓▓▓▓▓ ◀
func Bar(w io.Writer, title string, pts []Point, opts BarOptions) error {
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}

	valid := finite(pts)
	if len(valid) == 0 {
		return fmt.Errorf("chart bar: no values to render")
	}
	if opts.MaxBars > 0 && len(valid) > opts.MaxBars {
		valid = valid[len(valid)-opts.MaxBars:]
	}

	minVal, maxVal := bounds(valid)

	labelWidth, valWidth := 0, 0
	for _, p := range valid {
		labelWidth = max(labelWidth, runeLen(p.Label))
		valWidth = max(valWidth, len(formatFloat(p.Value)))
	}

	// label, value, two separators and room for the highlight marker
	barAreaWidth := totalWidth - labelWidth - valWidth - 6
	if barAreaWidth < 4 {
		barAreaWidth = 4
	}

	// Bars start at zero when every value is positive; a mixed or negative
	// range gets a zero line.
	lo := math.Min(minVal, 0)
	hi := math.Max(maxVal, 0)
	valRange := hi - lo
	if valRange == 0 {
		valRange = 1
	}
	hasNeg := minVal < 0
	zeroPos := 0
	if hasNeg {
		zeroPos = int(math.Round((-lo / valRange) * float64(barAreaWidth-1)))
	}

	header := fmt.Sprintf("%s  %s – %s", title, valid[0].Label, valid[len(valid)-1].Label)
	if opts.Unit != "" {
		header += " (" + opts.Unit + ")"
	}
	fmt.Fprintln(w, header)

	for _, p := range valid {
		fill := barRune
		if p.Highlight {
			fill = highlightRune
		}
		var bar string
		if hasNeg {
			bar = biBar(p.Value, valRange, barAreaWidth, zeroPos, fill)
		} else {
			n := int(math.Round(p.Value / valRange * float64(barAreaWidth)))
			n = min(max(n, 1), barAreaWidth)
			bar = strings.Repeat(string(fill), n)
		}
		if p.Highlight {
			bar = strings.TrimRight(bar, " ") + " ◀"
		}
		fmt.Fprintf(w, "%s  %*s  %s\n", padRight(p.Label, labelWidth), valWidth, formatFloat(p.Value), bar)
	}
	return nil
}

// biBar draws a bar left (negative) or right (positive) of the zero line at
// zeroPos within a field of width cells.
func biBar(val, valRange float64, width, zeroPos int, fill rune) string {
	buf := []rune(strings.Repeat(" ", width))
	if zeroPos >= 0 && zeroPos < width {
		buf[zeroPos] = '│'
	}
	n := int(math.Round(math.Abs(val) / valRange * float64(width-1)))
	if val >= 0 {
		for i := zeroPos + 1; i <= zeroPos+n && i < width; i++ {
			buf[i] = fill
		}
	} else {
		for i := max(zeroPos-n, 0); i < zeroPos; i++ {
			buf[i] = fill
		}
	}
	return string(buf)
}

// ─── Plot ─────────────────────────────────────────────────────────────────────

// PlotOptions controls multi-line ASCII plot rendering.
type PlotOptions struct {
	// Width is the total character width of the chart (including Y-axis label).
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// Height is the number of data rows. If 0, defaults to 12.
	Height int
	// Overlay, when set, holds one value per point (e.g. a fitted line)
	// drawn with dots under the main curve.
	Overlay []float64
}

// Plot renders a multi-line ASCII chart of pts to w. Highlighted points
// are drawn as a marker on top of the curve.
func Plot(w io.Writer, title string, pts []Point, opts PlotOptions) error {
	width := opts.Width
	if width <= 0 {
		width = termWidth()
	}
	height := opts.Height
	if height <= 0 {
		height = 12
	}
	if opts.Overlay != nil && len(opts.Overlay) != len(pts) {
		return fmt.Errorf("chart plot: overlay has %d values for %d points", len(opts.Overlay), len(pts))
	}

	valid := finite(pts)
	if len(valid) < 2 {
		return fmt.Errorf("chart plot: need at least 2 values (got %d)", len(valid))
	}
	minVal, maxVal := bounds(valid)
	for _, v := range opts.Overlay {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			minVal, maxVal = math.Min(minVal, v), math.Max(maxVal, v)
		}
	}

	ticks := yTicks(minVal, maxVal, height)
	yLabelWidth := 0
	for _, t := range ticks {
		yLabelWidth = max(yLabelWidth, len(formatFloat(t)))
	}
	plotWidth := max(width-yLabelWidth-1, 10)

	values := make([]float64, len(pts))
	for i, p := range pts {
		values[i] = p.Value
	}
	grid := buildGrid(sampleCols(values, plotWidth), minVal, maxVal, height)

	if opts.Overlay != nil {
		for col, v := range sampleCols(opts.Overlay, plotWidth) {
			if r := clampRow(v, minVal, maxVal, height); r >= 0 && grid[r][col] == ' ' {
				grid[r][col] = overlayRune
			}
		}
	}
	for i, p := range pts {
		if !p.Highlight {
			continue
		}
		col := colFor(i, len(pts), plotWidth)
		if r := clampRow(p.Value, minVal, maxVal, height); r >= 0 {
			grid[r][col] = markerRune
		}
	}

	fmt.Fprintf(w, "%s  (%s to %s)\n", title, pts[0].Label, pts[len(pts)-1].Label)

	for row := 0; row < height; row++ {
		label := ""
		for _, t := range ticks {
			if math.Abs(rowForValue(t, minVal, maxVal, height)-float64(row)) < 0.5 {
				label = formatFloat(t)
				break
			}
		}
		axis := "┤"
		if label == "" {
			axis = " "
		}
		fmt.Fprintf(w, "%*s%s%s\n", yLabelWidth, label, axis, string(grid[row]))
	}

	fmt.Fprintf(w, "%s└%s\n", strings.Repeat(" ", yLabelWidth), strings.Repeat("─", plotWidth))
	fmt.Fprintf(w, "%s %s\n", strings.Repeat(" ", yLabelWidth), xAxisLabels(pts, plotWidth))
	return nil
}

// ─── Grid building ────────────────────────────────────────────────────────────

// sampleCols reduces values to exactly n columns. Each column holds the
// average of its bucket, or NaN when the bucket has no value. With fewer
// values than columns a value spans several columns.
func sampleCols(values []float64, n int) []float64 {
	total := len(values)
	cols := make([]float64, n)
	for col := 0; col < n; col++ {
		lo := col * total / n
		hi := max((col+1)*total/n-1, lo)
		sum, count := 0.0, 0
		for i := lo; i <= hi && i < total; i++ {
			if !math.IsNaN(values[i]) {
				sum += values[i]
				count++
			}
		}
		if count == 0 {
			cols[col] = math.NaN()
		} else {
			cols[col] = sum / float64(count)
		}
	}
	return cols
}

// colFor maps point index i of total onto one of n columns, inverting
// sampleCols' bucketing.
func colFor(i, total, n int) int {
	if total <= 0 {
		return 0
	}
	for col := 0; col < n; col++ {
		if (col+1)*total/n-1 >= i {
			return col
		}
	}
	return n - 1
}

// rowForValue returns the float row index (0 = top = max) for v.
func rowForValue(v, minVal, maxVal float64, height int) float64 {
	if maxVal == minVal {
		return float64(height) / 2
	}
	return (maxVal - v) / (maxVal - minVal) * float64(height-1)
}

// clampRow is the grid row for v, or -1 for NaN.
func clampRow(v, minVal, maxVal float64, height int) int {
	if math.IsNaN(v) {
		return -1
	}
	r := int(math.Round(rowForValue(v, minVal, maxVal, height)))
	return min(max(r, 0), height-1)
}

// buildGrid renders columns into a height×width rune grid, connecting
// neighbouring columns with box-drawing characters.
func buildGrid(cols []float64, minVal, maxVal float64, height int) [][]rune {
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", len(cols)))
	}

	rowOf := make([]int, len(cols))
	for col, v := range cols {
		rowOf[col] = clampRow(v, minVal, maxVal, height)
	}

	for col, r := range rowOf {
		if r < 0 {
			continue
		}
		prev, next := -1, -1
		if col > 0 {
			prev = rowOf[col-1]
		}
		if col < len(cols)-1 {
			next = rowOf[col+1]
		}

		switch {
		case prev < 0 && next < 0:
			grid[r][col] = '•'
		case next >= 0 && next > r:
			grid[r][col] = '╮'
		case next >= 0 && next < r:
			grid[r][col] = '╯'
		default:
			grid[r][col] = '─'
		}

		// Vertical connector from the previous column's row.
		if prev >= 0 && prev != r {
			a, b := min(prev, r), max(prev, r)
			for fill := a + 1; fill < b; fill++ {
				grid[fill][col-1] = '│'
			}
			if prev < r {
				grid[r][col] = pick(grid[r][col], '╰')
			} else {
				grid[r][col] = pick(grid[r][col], '╭')
			}
		}
	}
	return grid
}

// pick keeps a turn already drawn toward the next column and otherwise uses
// the arrival corner.
func pick(cur, arrival rune) rune {
	if cur == '─' {
		return arrival
	}
	return cur
}

// ─── Axis helpers ─────────────────────────────────────────────────────────────

// yTicks returns 3 or 4 evenly spaced tick values for the Y axis.
func yTicks(minVal, maxVal float64, height int) []float64 {
	if maxVal == minVal {
		return []float64{minVal}
	}
	n := 4
	if height <= 6 {
		n = 3
	}
	ticks := make([]float64, n)
	for i := range ticks {
		ticks[i] = minVal + float64(i)*(maxVal-minVal)/float64(n-1)
	}
	return ticks
}

// xAxisLabels places the first, middle and last point labels.
func xAxisLabels(pts []Point, plotWidth int) string {
	buf := []rune(strings.Repeat(" ", plotWidth))
	writeAt := func(pos int, s string) {
		for i, ch := range []rune(s) {
			if pos+i >= 0 && pos+i < len(buf) {
				buf[pos+i] = ch
			}
		}
	}
	first, mid, last := pts[0].Label, pts[len(pts)/2].Label, pts[len(pts)-1].Label
	writeAt(0, first)
	if len(pts) > 2 {
		writeAt(plotWidth/2-runeLen(mid)/2, mid)
	}
	writeAt(plotWidth-runeLen(last), last)
	return string(buf)
}

// ─── Utilities ────────────────────────────────────────────────────────────────

func finite(pts []Point) []Point {
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0) {
			out = append(out, p)
		}
	}
	return out
}

func bounds(pts []Point) (lo, hi float64) {
	lo, hi = pts[0].Value, pts[0].Value
	for _, p := range pts[1:] {
		lo, hi = math.Min(lo, p.Value), math.Max(hi, p.Value)
	}
	return lo, hi
}

// formatFloat formats temperatures for labels: one decimal place, "." for NaN.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	if v == 0 {
		return "0.0"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func runeLen(s string) int { return len([]rune(s)) }

func padRight(s string, n int) string {
	if d := n - runeLen(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}

// termWidth returns the terminal width from $COLUMNS, defaulting to 80.
func termWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}
