package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"
)

// ClientMetrics covers the client side: API calls, breaker state and
// submission outcomes.
type ClientMetrics struct {
	registry *prometheus.Registry
	service  string

	gatewayRequests  *prometheus.CounterVec
	gatewayDuration  *prometheus.HistogramVec
	breakerState     *prometheus.GaugeVec
	submissionsTotal *prometheus.CounterVec
	evidencePerCase  prometheus.Histogram
}

func NewClientMetrics(service string) *ClientMetrics {
	registry := prometheus.NewRegistry()

	gatewayRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "complaintdesk",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total complaint API requests by operation and outcome.",
		},
		[]string{"service", "operation", "outcome"},
	)
	gatewayDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "complaintdesk",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Complaint API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "complaintdesk",
			Subsystem: "gateway",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
		},
		[]string{"service", "operation"},
	)
	submissionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "complaintdesk",
			Subsystem: "submission",
			Name:      "total",
			Help:      "Complaint submissions by outcome.",
		},
		[]string{"service", "outcome"},
	)
	evidencePerCase := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "complaintdesk",
			Subsystem: "submission",
			Name:      "evidence_images",
			Help:      "Evidence images per submission.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(gatewayRequests, gatewayDuration, breakerState, submissionsTotal, evidencePerCase)

	return &ClientMetrics{
		registry:         registry,
		service:          service,
		gatewayRequests:  gatewayRequests,
		gatewayDuration:  gatewayDuration,
		breakerState:     breakerState,
		submissionsTotal: submissionsTotal,
		evidencePerCase:  evidencePerCase,
	}
}

func (m *ClientMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ClientMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *ClientMetrics) ObserveRequest(operation, outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.gatewayRequests.WithLabelValues(m.service, operation, outcome).Inc()
	m.gatewayDuration.WithLabelValues(m.service, operation).Observe(duration.Seconds())
}

func (m *ClientMetrics) ObserveBreakerState(operation string, _, to gobreaker.State) {
	m.breakerState.WithLabelValues(m.service, operation).Set(float64(to))
}

func (m *ClientMetrics) ObserveSubmission(outcome string, evidenceCount int) {
	m.submissionsTotal.WithLabelValues(m.service, outcome).Inc()
	if evidenceCount >= 0 {
		m.evidencePerCase.Observe(float64(evidenceCount))
	}
}
