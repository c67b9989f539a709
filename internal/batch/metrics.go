package batch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/internal/scoring"
)

var _ scoring.Observer = (*Metrics)(nil)

// Metrics are the Prometheus collectors updated by a Runner.
type Metrics struct {
	// Units counts evaluated units by algorithm and outcome
	// (scored, insufficient_data, failed).
	Units *prometheus.CounterVec
	// Latency observes evaluation time per algorithm, cache hits excluded.
	Latency *prometheus.HistogramVec
	// CacheLookups counts cache lookups by result (hit, miss, error).
	CacheLookups *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which suits tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adhere",
			Name:      "units_evaluated_total",
			Help:      "Evaluation units processed, by algorithm and outcome",
		}, []string{"algorithm", "outcome"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "adhere",
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent evaluating a single unit",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}, []string{"algorithm"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adhere",
			Name:      "cache_lookups_total",
			Help:      "Score cache lookups by result",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Units, m.Latency, m.CacheLookups)
	}
	return m
}

// ObserveUnit records one freshly evaluated unit. Workers hand it to the
// scoring activities so both execution paths feed the same collectors.
func (m *Metrics) ObserveUnit(algorithm string, res domain.UnitResult, elapsed time.Duration) {
	m.Latency.WithLabelValues(algorithm).Observe(elapsed.Seconds())
	m.Units.WithLabelValues(algorithm, outcome(res)).Inc()
}

func outcome(res domain.UnitResult) string {
	switch {
	case res.Failed():
		return "failed"
	case res.Result.Insufficient():
		return "insufficient_data"
	default:
		return "scored"
	}
}
