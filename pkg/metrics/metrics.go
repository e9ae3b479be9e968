package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "snapstock"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// AuthOperations counts login/reissue/logout by outcome (success or error code).
	AuthOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "auth_operations_total", Help: "Auth operations by operation and outcome."},
		[]string{"operation", "outcome"},
	)
	AuthOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "auth_operation_duration_seconds",
			Help:      "Latency of auth operations, password hashing included.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation"},
	)
	// AuthGate counts per-request authentication results.
	AuthGate = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "auth_gate_total", Help: "Request authentication results."},
		[]string{"result"},
	)
	SessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "session_events_total", Help: "Session events by type and publish result."},
		[]string{"type", "result"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		RateLimitAllowed,
		RateLimitRejected,
		AuthOperations,
		AuthOperationDuration,
		AuthGate,
		SessionEvents,
	}
}

// RegisterCollectors panics when called twice on the same registerer.
func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(collectors()...)
}
