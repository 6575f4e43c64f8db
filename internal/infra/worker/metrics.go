package worker

import (
	"time"

	"feedwatch/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics holds the serve-mode metrics: configuration loading plus one
// set of counters for the scheduled poll job.
type WorkerMetrics struct {
	*config.ConfigMetrics

	// CronJobRunsTotal counts job runs by status (success, failure, skipped).
	CronJobRunsTotal *prometheus.CounterVec

	// CronJobDurationSeconds observes job duration.
	// Buckets: 1s, 5s, 30s, 1m, 5m, 15m, 30m
	CronJobDurationSeconds prometheus.Histogram

	// CronJobSourcesProcessedTotal adds the sources polled by each successful run.
	CronJobSourcesProcessedTotal prometheus.Counter

	// CronJobNewItemsTotal adds the new items found by each successful run.
	CronJobNewItemsTotal prometheus.Counter

	// CronJobLastSuccessTimestamp is the Unix time of the last successful run.
	CronJobLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics registers the worker metrics with the default registry.
func NewWorkerMetrics() *WorkerMetrics {
	return NewWorkerMetricsWith(prometheus.DefaultRegisterer)
}

// NewWorkerMetricsWith registers the worker metrics with reg.
func NewWorkerMetricsWith(reg prometheus.Registerer) *WorkerMetrics {
	factory := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetricsWith(reg, "worker"),

		CronJobRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_runs_total",
			Help: "Total number of cron job runs by status",
		}, []string{"status"}),

		CronJobDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_cron_job_duration_seconds",
			Help:    "Duration of cron job execution in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		CronJobSourcesProcessedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "worker_cron_job_sources_processed_total",
			Help: "Total number of sources processed across all cron job runs",
		}),

		CronJobNewItemsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "worker_cron_job_new_items_total",
			Help: "Total number of new items found across all cron job runs",
		}),

		CronJobLastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "worker_cron_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful cron job run",
		}),
	}
}

// RecordJobRun increments the run counter for status.
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.CronJobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes one run's duration.
func (m *WorkerMetrics) RecordJobDuration(d time.Duration) {
	m.CronJobDurationSeconds.Observe(d.Seconds())
}

// RecordJobSuccess records the counts of a successful run and stamps the last success time.
func (m *WorkerMetrics) RecordJobSuccess(sources, newItems int) {
	m.CronJobSourcesProcessedTotal.Add(float64(sources))
	m.CronJobNewItemsTotal.Add(float64(newItems))
	m.CronJobLastSuccessTimestamp.SetToCurrentTime()
}
