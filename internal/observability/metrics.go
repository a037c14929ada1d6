package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service-level collectors. Provider call metrics register on the same Registry.
// A nil *Metrics is a no-op.
type Metrics struct {
	Registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge
	analyses    *prometheus.CounterVec
	reprompts   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "persona_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "persona_api_request_duration_seconds",
			Help:    "API request latency in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 180, 600},
		}, []string{"method", "route", "status"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "persona_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "persona_analyses_total",
			Help: "Completed analysis runs by media type and outcome.",
		}, []string{"media_type", "outcome"}),
		reprompts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "persona_synthesis_reprompts_total",
			Help: "Reprompts issued after an incomplete assessment, by provider and result.",
		}, []string{"provider", "result"}),
	}
}

// Registerer returns the registry for other components, or nil when m is nil.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return nil
	}
	return m.Registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPIRequest(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	code := strconv.Itoa(status)
	m.apiRequests.WithLabelValues(method, route, code).Inc()
	m.apiLatency.WithLabelValues(method, route, code).Observe(dur.Seconds())
}

func (m *Metrics) IncInflight() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) DecInflight() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

// ObserveAnalysis counts one finished orchestration. outcome is "complete", "no_subjects" or an error kind.
func (m *Metrics) ObserveAnalysis(mediaType, outcome string) {
	if m != nil {
		m.analyses.WithLabelValues(mediaType, outcome).Inc()
	}
}

func (m *Metrics) ObserveReprompt(provider string, valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.reprompts.WithLabelValues(provider, result).Inc()
}
