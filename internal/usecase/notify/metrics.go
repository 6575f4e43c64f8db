package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for notification delivery
var (
	// notifyBatchesTotal counts batch deliveries per channel and result
	notifyBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedwatch_notify_batches_total",
			Help: "Total number of notification batches by channel and status",
		},
		[]string{"channel", "status"}, // status: success|failure|circuit_open
	)

	// notifyItemsTotal counts items delivered per channel
	notifyItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedwatch_notify_items_total",
			Help: "Total number of items delivered by channel",
		},
		[]string{"channel"},
	)

	// notifyDuration tracks batch send duration
	notifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedwatch_notify_duration_seconds",
			Help:    "Notification batch send duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30}, // 100ms to 30s
		},
		[]string{"channel"},
	)

	// circuitBreakerOpenTotal tracks circuit breaker open events
	circuitBreakerOpenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedwatch_notify_circuit_breaker_open_total",
			Help: "Total number of circuit breaker open events",
		},
		[]string{"channel"},
	)

	// channelsEnabled tracks number of enabled channels
	channelsEnabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedwatch_notify_channels_enabled",
			Help: "Number of enabled notification channels",
		},
	)
)

// RecordBatchSuccess records a delivered batch of n items.
func RecordBatchSuccess(channel string, n int, duration time.Duration) {
	notifyBatchesTotal.WithLabelValues(channel, "success").Inc()
	notifyItemsTotal.WithLabelValues(channel).Add(float64(n))
	notifyDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordBatchFailure records a batch that could not be delivered.
func RecordBatchFailure(channel string, duration time.Duration) {
	notifyBatchesTotal.WithLabelValues(channel, "failure").Inc()
	notifyDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordBatchRejected records a batch the circuit breaker refused to send.
func RecordBatchRejected(channel string) {
	notifyBatchesTotal.WithLabelValues(channel, "circuit_open").Inc()
}

// RecordCircuitBreakerOpen records a circuit breaker open event.
func RecordCircuitBreakerOpen(channel string) {
	circuitBreakerOpenTotal.WithLabelValues(channel).Inc()
}

// SetChannelsEnabled sets the number of enabled notification channels.
func SetChannelsEnabled(count int) {
	channelsEnabled.Set(float64(count))
}
