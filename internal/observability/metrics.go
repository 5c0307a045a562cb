// Package observability holds the Prometheus metrics of the service.
package observability

import (
	"time"

	"github.com/go-auth-nosql/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeSuccess labels a transition or delivery that succeeded. Failures are
// labelled with their error kind.
const OutcomeSuccess = "success"

// TransitionsTotal counts lifecycle transitions by name and outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var TransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_transitions_total",
		Help: "Total number of credential lifecycle transitions",
	},
	[]string{"transition", "outcome"},
)

// NotificationsTotal counts notification deliveries by kind and outcome.
var NotificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_notifications_total",
		Help: "Total number of notification deliveries",
	},
	[]string{"kind", "outcome"},
)

// HTTPRequestDuration observes request latency by route pattern.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "auth_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// RegisterMetrics registers the service metrics with reg.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(TransitionsTotal)
	reg.MustRegister(NotificationsTotal)
	reg.MustRegister(HTTPRequestDuration)
}

// Outcome labels err: OutcomeSuccess for nil, its error kind otherwise.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	return domain.KindOf(err)
}

func RecordTransition(transition string, err error) {
	TransitionsTotal.WithLabelValues(transition, Outcome(err)).Inc()
}

// RecordNotification counts one delivery attempt.
func RecordNotification(kind string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = "failure"
	}
	NotificationsTotal.WithLabelValues(kind, outcome).Inc()
}

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, statusClass(status)).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	}
	return "2xx"
}
