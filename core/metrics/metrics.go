package metrics

import (
	"time"

	"objstore/core/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for storage operations.
type Metrics struct {
	// Operations counts driver calls by op and result.
	Operations *prometheus.CounterVec
	// Duration tracks driver call latency by op.
	Duration *prometheus.HistogramVec
}

// New creates the storage metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "objstore_operations_total",
			Help: "Total number of storage operations",
		}, []string{"op", "result"}),

		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "objstore_operation_duration_seconds",
			Help:    "Duration of storage operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// observe records one finished call of op.
func (m *Metrics) observe(op string, start time.Time, err error) {
	m.Operations.WithLabelValues(op, storage.Reason(err)).Inc()
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
