package vacation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics
var (
	requestsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vacation_requests_created_total",
			Help: "Total number of vacation requests submitted",
		},
	)

	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vacation_status_transitions_total",
			Help: "Total number of applied status transitions",
		},
		[]string{"from", "to"},
	)

	operationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vacation_operation_failures_total",
			Help: "Total number of vacation operations that returned an error",
		},
		[]string{"op", "kind"},
	)
)

func observeFailure(op string, err error) {
	operationFailuresTotal.WithLabelValues(op, string(KindOf(err))).Inc()
}
