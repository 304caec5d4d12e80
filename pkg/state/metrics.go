package state

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricStoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persist_store_operations_total",
			Help: "Store operations by result.",
		},
		[]string{
			"op",     // load, save, delete
			"result", // ok, missing, corrupt, error
		},
	)
	metricStoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "persist_store_operation_duration_seconds",
			Help:    "Store operation duration in seconds.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"op"},
	)
	metricStoreRecoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "persist_store_recoveries_total",
			Help: "Backups restored over a missing or corrupt primary during load.",
		},
	)
)

func observe(op, result string, start time.Time) {
	metricStoreOperations.WithLabelValues(op, result).Inc()
	metricStoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
