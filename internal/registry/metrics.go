package registry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/irzumbm/pulseai/internal/model"
)

var (
	inflightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulseai_requests_inflight",
			Help: "Number of requests currently in a non-terminal state.",
		},
	)

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulseai_requests_total",
			Help: "Total number of requests that reached a terminal state.",
		},
		[]string{"kind", "status"},
	)
)

func init() {
	prometheus.MustRegister(inflightRequests)
	prometheus.MustRegister(requestsTotal)

	// Pre-initialize counter label combinations so they appear in /metrics
	// with value 0 from startup, rather than only after first observation.
	for _, kind := range []string{model.KindChat, model.KindRecord} {
		requestsTotal.WithLabelValues(kind, model.StatusCompleted)
		requestsTotal.WithLabelValues(kind, model.StatusError)
		requestsTotal.WithLabelValues(kind, model.StatusCancelled)
	}
}
