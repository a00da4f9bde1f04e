package analyze

import (
	"time"

	"github.com/derickschaefer/almanac/internal/model"
)

// SameDay collects every record whose month and day equal month/day and whose
// year lies in years (zero bounds are open). Feb 29 only ever matches leap
// years. An empty set is a valid result.
func SameDay(ts *model.TimeSeries, month time.Month, day int, years model.YearRange) model.SameDaySet {
	set := model.SameDaySet{Month: month, Day: day, Years: years}
	for i := 0; i < ts.Len(); i++ {
		r := ts.At(i)
		if r.Date.Month() != month || r.Date.Day() != day {
			continue
		}
		if !years.Contains(r.Date.Year()) {
			continue
		}
		set.Records = append(set.Records, r)
	}
	return set
}

// SameDayAs is SameDay keyed on the calendar date of target.
func SameDayAs(ts *model.TimeSeries, target time.Time, years model.YearRange) model.SameDaySet {
	return SameDay(ts, target.Month(), target.Day(), years)
}

// Pair is one year's high/low reading for the scatter view.
type Pair struct {
	Date   time.Time   `json:"date"`
	High   model.Float `json:"high"`
	Low    model.Float `json:"low"`
	Target bool        `json:"target,omitempty"`
}

// Pairs lists the high/low pair of every record in set that carries both
// values, flagging the record on target.
func Pairs(set model.SameDaySet, target time.Time) []Pair {
	target = model.DateOf(target)
	out := make([]Pair, 0, set.Len())
	for _, r := range set.Records {
		if r.IsMissing(model.MetricHigh) || r.IsMissing(model.MetricLow) {
			continue
		}
		out = append(out, Pair{
			Date:   r.Date,
			High:   model.Float(r.High),
			Low:    model.Float(r.Low),
			Target: r.Date.Equal(target),
		})
	}
	return out
}
