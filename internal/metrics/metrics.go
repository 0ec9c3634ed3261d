// Package metrics holds the Prometheus collectors for capability calls and persistence.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wellness"

// Outcome labels for capability calls.
const (
	OutcomeOK        = "ok"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

type Metrics struct {
	capabilityCalls    *prometheus.CounterVec
	capabilityDuration *prometheus.HistogramVec
	persistFailures    *prometheus.CounterVec
	rejectedBusy       *prometheus.CounterVec
}

// New registers the collectors on reg. Pass a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		capabilityCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "capability_calls_total",
				Help:      "Generative capability calls by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		capabilityDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "capability_call_duration_seconds",
				Help:      "Latency of generative capability calls.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		persistFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persist_failures_total",
				Help:      "Best-effort collection writes that failed.",
			},
			[]string{"collection"},
		),
		rejectedBusy: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "busy_rejections_total",
				Help:      "Submissions rejected while a call for the same view was outstanding.",
			},
			[]string{"view"},
		),
	}
}

// ObserveCall records one capability call. Nil receivers are ignored.
func (m *Metrics) ObserveCall(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.capabilityCalls.WithLabelValues(operation, outcome).Inc()
	m.capabilityDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) PersistFailed(collection string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(collection).Inc()
}

func (m *Metrics) Busy(view string) {
	if m == nil {
		return
	}
	m.rejectedBusy.WithLabelValues(view).Inc()
}
