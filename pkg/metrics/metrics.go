package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus instruments. HTTP series come
// from the gin middleware; the dispatch series are incremented by the
// dispatch engine and the escalation scheduler.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	alertsCreatedTotal        prometheus.Counter
	dispatchUnavailableTotal  prometheus.Counter
	escalationsTotal          prometheus.Counter
	escalationExhaustedTotal  prometheus.Counter
	escalationSupersededTotal prometheus.Counter
	statusTransitionsTotal    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		alertsCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_alerts_created_total",
			Help: "Alerts created and assigned to a responder",
		}),
		dispatchUnavailableTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_no_responder_total",
			Help: "Alert creations rejected because no responder was available",
		}),
		escalationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_escalations_total",
			Help: "Alerts reassigned to the next responder after a timeout",
		}),
		escalationExhaustedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_escalation_exhausted_total",
			Help: "Escalation chains terminated with the alert still pending",
		}),
		escalationSupersededTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_escalation_superseded_total",
			Help: "Timer firings that found the alert already handled",
		}),
		statusTransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_status_transitions_total",
				Help: "Responder-driven alert status transitions",
			},
			[]string{"to"},
		),
	}
}

func (m *Metrics) AlertCreated()           { m.alertsCreatedTotal.Inc() }
func (m *Metrics) NoResponderAvailable()   { m.dispatchUnavailableTotal.Inc() }
func (m *Metrics) Escalated()              { m.escalationsTotal.Inc() }
func (m *Metrics) EscalationExhausted()    { m.escalationExhaustedTotal.Inc() }
func (m *Metrics) EscalationSuperseded()   { m.escalationSupersededTotal.Inc() }
func (m *Metrics) StatusTransition(to string) {
	m.statusTransitionsTotal.WithLabelValues(to).Inc()
}
