package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ExtractionClientMetrics observes outbound requests to the document
// extraction service.
type ExtractionClientMetrics struct {
	registry *prometheus.Registry
	service  string

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewExtractionClientMetrics(service string) *ExtractionClientMetrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nocv",
			Subsystem: "dox",
			Name:      "requests_total",
			Help:      "Total extraction service requests by operation and outcome.",
		},
		[]string{"service", "operation", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nocv",
			Subsystem: "dox",
			Name:      "request_duration_seconds",
			Help:      "Extraction service request latency in seconds by operation.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(requests, duration)

	return &ExtractionClientMetrics{
		registry: registry,
		service:  service,
		requests: requests,
		duration: duration,
	}
}

func (m *ExtractionClientMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ExtractionClientMetrics) ObserveRequest(operation, outcome string, took time.Duration) {
	m.requests.WithLabelValues(m.service, operation, outcome).Inc()
	m.duration.WithLabelValues(m.service, operation).Observe(took.Seconds())
}
