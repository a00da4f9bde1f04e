// Package metrics holds the process-wide Prometheus collectors. They are
// registered on a private registry so a CLI run can dump exactly these
// series to a node-exporter textfile with WriteTextfile.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the registry every almanac collector lives on.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	RecordsNormalized = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "almanac_records_normalized_total",
			Help: "Total daily records kept by the normalizer",
		},
	)

	RecordsSkipped = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "almanac_records_skipped_total",
			Help: "Total input records dropped or overwritten by the normalizer",
		},
		[]string{"reason"},
	)

	Computations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "almanac_computations_total",
			Help: "Analysis computations by component and outcome",
		},
		[]string{"component", "outcome"},
	)

	AnalysisDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "almanac_analysis_duration_seconds",
			Help:    "Wall time of one analysis component",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"component"},
	)
)

// Skip reasons for RecordsSkipped.
const (
	ReasonBadDate   = "bad_date"
	ReasonDuplicate = "duplicate"
)

// Outcome labels for Computations.
const (
	OutcomeOK           = "ok"
	OutcomeInsufficient = "insufficient"
	OutcomeError        = "error"
)

// ObserveOutcome records one finished computation under outcome.
func ObserveOutcome(component string, seconds float64, outcome string) {
	Computations.WithLabelValues(component, outcome).Inc()
	AnalysisDuration.WithLabelValues(component).Observe(seconds)
}

// WriteTextfile writes every registered series to path in the text
// exposition format, atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
