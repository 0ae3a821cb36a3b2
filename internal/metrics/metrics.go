// Package metrics exposes Prometheus instrumentation for board mutations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for card mutations and layout sync.
type Metrics struct {
	// Successful mutations by action: create, edit, delete, move
	Mutations *prometheus.CounterVec

	// Failed mutations by action
	MutationErrors *prometheus.CounterVec

	// Mutation latency, lock wait included
	MutationLatency *prometheus.HistogramVec

	// Layout files applied by sync or the watcher
	LayoutsApplied prometheus.Counter
}

// New registers all metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kanbo_card_mutations_total",
			Help: "Total successful card mutations by action",
		}, []string{"action"}),

		MutationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kanbo_mutation_errors_total",
			Help: "Total rejected or failed card mutations by action",
		}, []string{"action"}),

		MutationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kanbo_mutation_duration_seconds",
			Help:    "Duration of card mutations including load and save",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"action"}),

		LayoutsApplied: f.NewCounter(prometheus.CounterOpts{
			Name: "kanbo_layouts_applied_total",
			Help: "Total layout files applied to the database",
		}),
	}
}

// ObserveMutation records the outcome and duration of one mutation.
func (m *Metrics) ObserveMutation(action string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.MutationLatency.WithLabelValues(action).Observe(time.Since(start).Seconds())
	if err != nil {
		m.MutationErrors.WithLabelValues(action).Inc()
		return
	}
	m.Mutations.WithLabelValues(action).Inc()
}

// IncrementLayoutsApplied records one applied layout file.
func (m *Metrics) IncrementLayoutsApplied() {
	if m != nil {
		m.LayoutsApplied.Inc()
	}
}
