// Package metrics exposes Prometheus counters for game sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects turn and outcome statistics. A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	turns          prometheus.Counter
	finished       *prometheus.CounterVec
	oracleFailures prometheus.Counter
	oracleDuration prometheus.Histogram
}

// New creates a collector on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		turns: factory.NewCounter(prometheus.CounterOpts{
			Name: "eva_turns_total",
			Help: "Player utterances processed.",
		}),
		finished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eva_sessions_finished_total",
			Help: "Sessions that reached a terminal outcome.",
		}, []string{"outcome", "escape_method"}),
		oracleFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "eva_oracle_failures_total",
			Help: "Oracle calls that failed or timed out.",
		}),
		oracleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "eva_oracle_duration_seconds",
			Help:    "Latency of oracle calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) TurnProcessed() {
	if m == nil {
		return
	}
	m.turns.Inc()
}

func (m *Metrics) SessionFinished(outcome, escapeMethod string) {
	if m == nil {
		return
	}
	m.finished.WithLabelValues(outcome, escapeMethod).Inc()
}

func (m *Metrics) OracleCall(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.oracleDuration.Observe(d.Seconds())
	if err != nil {
		m.oracleFailures.Inc()
	}
}
