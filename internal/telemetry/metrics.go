package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat_gateway"

// Metrics tracks gateway traffic.
//
//   - chat_gateway_requests_total{provider,status}: handled chat requests
//   - chat_gateway_provider_calls_total{provider,outcome}: adapter invocations
//   - chat_gateway_provider_latency_seconds{provider}: adapter call latency
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	providerCalls *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// NewMetrics registers the gateway metrics on registry, or on a fresh registry
// when nil.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of handled chat requests by resolved provider and status",
			},
			[]string{"provider", "status"},
		),
		providerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Total number of provider adapter calls by outcome",
			},
			[]string{"provider", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_latency_seconds",
				Help:      "Provider adapter call latency in seconds",
				// LLM completions land between a few hundred ms and the request timeout.
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(m.requests, m.providerCalls, m.latency)
	return m
}

// ObserveRequest counts one handled chat request.
func (m *Metrics) ObserveRequest(provider, status string) {
	m.requests.WithLabelValues(provider, status).Inc()
}

// ObserveProviderCall counts one adapter call and records its latency.
func (m *Metrics) ObserveProviderCall(provider, outcome string, elapsed time.Duration) {
	m.providerCalls.WithLabelValues(provider, outcome).Inc()
	m.latency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
