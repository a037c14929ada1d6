package provider

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records per-provider call outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
	breaker *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		calls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "persona_provider_calls_total",
				Help: "Provider calls by provider, capability and outcome",
			},
			[]string{"provider", "capability", "outcome"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "persona_provider_call_duration_seconds",
				Help:    "Provider call latency in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"provider", "capability"},
		),
		breaker: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "persona_provider_breaker_state",
				Help: "Circuit breaker state per provider (0 closed, 1 half-open, 2 open)",
			},
			[]string{"provider"},
		),
	}
}

func (m *Metrics) observe(id ID, capability Capability, kind ErrorKind, dur time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if kind != KindNone {
		outcome = string(kind)
	}
	m.calls.WithLabelValues(string(id), string(capability), outcome).Inc()
	m.latency.WithLabelValues(string(id), string(capability)).Observe(dur.Seconds())
}

func (m *Metrics) setBreaker(id ID, state float64) {
	if m == nil {
		return
	}
	m.breaker.WithLabelValues(string(id)).Set(state)
}
