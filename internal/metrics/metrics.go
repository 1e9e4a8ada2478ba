// Package metrics exposes Prometheus instrumentation for predictions
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "healthrisk"

// Metrics holds the service collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	predictions  *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	aiDuration   prometheus.Histogram
	degraded     prometheus.Counter
	batchItems   *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
	httpRequests *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the process-wide instance.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction bundles produced, by source.",
		}, []string{"source"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_fallbacks_total",
			Help:      "AI requests that fell back to rule-based scoring, by error code.",
		}, []string{"code"}),
		aiDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_request_duration_seconds",
			Help:      "Latency of generative model requests.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_degraded_responses_total",
			Help:      "Model responses that could not be parsed as structured output.",
		}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Batch items processed, by status.",
		}, []string{"status"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ai_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"name"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status.",
		}, []string{"route", "status"}),
	}

	m.registry.MustRegister(
		m.predictions,
		m.fallbacks,
		m.aiDuration,
		m.degraded,
		m.batchItems,
		m.breakerState,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordPrediction(source string) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordFallback(code string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveAIRequest(d time.Duration) {
	if m == nil {
		return
	}
	m.aiDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordDegraded() {
	if m == nil {
		return
	}
	m.degraded.Inc()
}

func (m *Metrics) RecordBatchItem(status string) {
	if m == nil {
		return
	}
	m.batchItems.WithLabelValues(status).Inc()
}

// SetBreakerState records a circuit breaker state as 0 closed, 1 half-open, 2 open.
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) RecordHTTPRequest(route, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, status).Inc()
}
