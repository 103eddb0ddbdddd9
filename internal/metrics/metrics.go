// Package metrics — prometheus-метрики сервиса.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	// Решения проверки бронирования: bookable, out_of_availability, slot_conflict.
	BookingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_decisions_total",
			Help: "Total number of can-book decisions by outcome",
		},
		[]string{"outcome"},
	)

	TasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_processed_total",
			Help: "Total number of background tasks processed",
		},
		[]string{"kind", "status"}, // status: success, failed, duplicate
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_published_total",
			Help: "Total number of outbox events handed to the broker",
		},
		[]string{"status"},
	)

	TxRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_serialization_retries_total",
			Help: "Total number of retried serializable transactions",
		},
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementBookingDecision(outcome string) {
	BookingDecisions.WithLabelValues(outcome).Inc()
}

func IncrementTaskProcessed(kind, status string) {
	TasksProcessed.WithLabelValues(kind, status).Inc()
}
