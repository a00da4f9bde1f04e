package analyze

import (
	"fmt"
	"sort"
	"time"

	"github.com/derickschaefer/almanac/internal/model"
)

// DefaultTopK is used when TopK is asked for k ≤ 0.
const DefaultTopK = 5

// RankedRecord is one entry of a full same-day ordering.
type RankedRecord struct {
	Rank       int                     `json:"rank"`
	Percentile float64                 `json:"percentile"`
	Value      float64                 `json:"value"`
	Record     model.TemperatureRecord `json:"record"`
}

// Ranked orders the records of set that carry metric, most extreme first
// under dir. Equal values keep date order. Percentile is 100*(rank-1)/total.
func Ranked(set model.SameDaySet, metric model.Metric, dir model.Direction) []RankedRecord {
	out := make([]RankedRecord, 0, set.Len())
	for _, r := range set.Records {
		if r.IsMissing(metric) {
			continue
		}
		out = append(out, RankedRecord{Value: r.Value(metric), Record: r})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Value != b.Value {
			if dir == model.Ascending {
				return a.Value < b.Value
			}
			return a.Value > b.Value
		}
		return a.Record.Date.Before(b.Record.Date)
	})
	total := len(out)
	for i := range out {
		out[i].Rank = i + 1
		out[i].Percentile = percentileOfRank(i+1, total)
	}
	return out
}

// Rank places the record on date within set.
//
// Records missing metric are excluded first. If nothing remains the error
// wraps model.ErrEmptyRankingSet; if date is not among the remainder it
// wraps model.ErrTargetNotFound.
func Rank(set model.SameDaySet, date time.Time, metric model.Metric, dir model.Direction) (model.RankResult, error) {
	ranked := Ranked(set, metric, dir)
	if len(ranked) == 0 {
		return model.RankResult{}, fmt.Errorf("rank %s on %02d-%02d: %w", metric, int(set.Month), set.Day, model.ErrEmptyRankingSet)
	}
	date = model.DateOf(date)
	for _, rr := range ranked {
		if !rr.Record.Date.Equal(date) {
			continue
		}
		return model.RankResult{
			Metric:     metric,
			Direction:  dir,
			Date:       date,
			Value:      rr.Value,
			Rank:       rr.Rank,
			Total:      len(ranked),
			Percentile: rr.Percentile,
		}, nil
	}
	return model.RankResult{}, fmt.Errorf("rank %s on %s: %w", metric, date.Format(model.DateLayout), model.ErrTargetNotFound)
}

// TopK returns the first k entries of Ranked. k ≤ 0 means DefaultTopK.
func TopK(set model.SameDaySet, metric model.Metric, dir model.Direction, k int) []RankedRecord {
	if k <= 0 {
		k = DefaultTopK
	}
	ranked := Ranked(set, metric, dir)
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// Extreme is the all-time record for a calendar day and how far it sits
// from a reference value.
type Extreme struct {
	Metric    model.Metric    `json:"metric"`
	Direction model.Direction `json:"direction"`
	Date      time.Time       `json:"date"`
	Value     float64         `json:"value"`
	Delta     model.Float     `json:"delta"` // Value - reference; NaN when no reference
}

// RecordFor returns the rank-1 record of set under dir together with its
// delta against reference (pass NaN when there is none).
func RecordFor(set model.SameDaySet, metric model.Metric, dir model.Direction, reference float64) (Extreme, error) {
	ranked := Ranked(set, metric, dir)
	if len(ranked) == 0 {
		return Extreme{}, fmt.Errorf("record %s on %02d-%02d: %w", metric, int(set.Month), set.Day, model.ErrEmptyRankingSet)
	}
	top := ranked[0]
	return Extreme{
		Metric:    metric,
		Direction: dir,
		Date:      top.Record.Date,
		Value:     top.Value,
		Delta:     model.Float(top.Value - reference),
	}, nil
}

func percentileOfRank(rank, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(rank-1) / float64(total)
}
