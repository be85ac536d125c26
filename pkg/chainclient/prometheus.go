package chainclient

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics used in monitoring service.
var (
	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of node API calls issued",
			Name:      "node_requests_total",
			Namespace: "aesdk",
		},
		[]string{"call"},
	)

	apiFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of node API calls that failed",
			Name:      "node_request_failures_total",
			Namespace: "aesdk",
		},
		[]string{"call"},
	)
)

func init() {
	prometheus.MustRegister(
		apiRequests,
		apiFailures,
	)
}
