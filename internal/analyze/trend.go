package analyze

import (
	"fmt"
	"math"

	"github.com/derickschaefer/almanac/internal/model"
)

// ─── Trend ────────────────────────────────────────────────────────────────────

// Fit fits value ≈ slope*year + intercept by ordinary least squares over the
// points inside fit. NaN points are skipped. Fewer than two usable points, or
// points that all share one year, yield *model.InsufficientDataError.
func Fit(points []model.YearValue, fit model.YearRange, metric model.Metric) (model.TrendModel, error) {
	tm := model.TrendModel{Metric: metric, FitYears: fit}

	var pts []point
	years := make(map[int]bool)
	for _, p := range points {
		if math.IsNaN(p.Value) || !fit.Contains(p.Year) {
			continue
		}
		pts = append(pts, point{float64(p.Year), p.Value})
		years[p.Year] = true
	}
	tm.Points = len(pts)
	if len(pts) < 2 || len(years) < 2 {
		return tm, &model.InsufficientDataError{Metric: metric, Points: len(pts)}
	}

	tm.Slope, tm.Intercept = olsRegress(pts)
	tm.R2 = r2(pts, tm.Slope, tm.Intercept)
	return tm, nil
}

// Predict evaluates m at every year of future, which must be bounded.
func Predict(m model.TrendModel, future model.YearRange) ([]model.YearValue, error) {
	if !future.Bounded() {
		return nil, fmt.Errorf("predict: year range %s must be bounded", future)
	}
	if err := future.Validate(); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	years := future.Years()
	out := make([]model.YearValue, len(years))
	for i, y := range years {
		out[i] = model.YearValue{Year: y, Value: m.At(y)}
	}
	return out, nil
}

type point struct{ x, y float64 }

// olsRegress works on centred sums so years near 2000 do not lose precision.
func olsRegress(pts []point) (slope, intercept float64) {
	n := float64(len(pts))
	var xMean, yMean float64
	for _, p := range pts {
		xMean += p.x
		yMean += p.y
	}
	xMean /= n
	yMean /= n

	var sxy, sxx float64
	for _, p := range pts {
		dx := p.x - xMean
		sxy += dx * (p.y - yMean)
		sxx += dx * dx
	}
	if sxx == 0 {
		return 0, yMean
	}
	slope = sxy / sxx
	intercept = yMean - slope*xMean
	return
}

func r2(pts []point, slope, intercept float64) float64 {
	var yMean float64
	for _, p := range pts {
		yMean += p.y
	}
	yMean /= float64(len(pts))

	var ssTot, ssRes float64
	for _, p := range pts {
		pred := slope*p.x + intercept
		ssTot += (p.y - yMean) * (p.y - yMean)
		ssRes += (p.y - pred) * (p.y - pred)
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}
