// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch metrics track per-source feed retrieval
var (
	// FetchAttemptsTotal counts single fetch attempts by source and classification
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedwatch_fetch_attempts_total",
			Help: "Total number of feed fetch attempts by classification",
		},
		[]string{"source", "class"},
	)

	// FetchDuration measures the wall time of a whole fetch, retries and backoff included
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedwatch_fetch_duration_seconds",
			Help:    "Time taken to fetch a source including retries",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"source"},
	)

	// FetchOutcomesTotal counts terminal fetch outcomes by source and state
	FetchOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedwatch_fetch_outcomes_total",
			Help: "Total number of completed fetches by terminal state",
		},
		[]string{"source", "state"},
	)

	// FetchSkippedTotal counts sources skipped without an attempt
	FetchSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedwatch_fetch_skipped_total",
			Help: "Total number of sources skipped without a fetch",
		},
		[]string{"reason"}, // reason: disabled, unhealthy
	)
)

// Health and deduplication metrics
var (
	// SourceDisabled is 1 while a source is auto- or manually disabled
	SourceDisabled = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feedwatch_source_disabled",
			Help: "Whether a source is currently disabled (1) or not (0)",
		},
		[]string{"source"},
	)

	// SourceConsecutiveFailures tracks the current failure streak per source
	SourceConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feedwatch_source_consecutive_failures",
			Help: "Current consecutive failure count per source",
		},
		[]string{"source"},
	)

	// NewItemsTotal counts items reported as new
	NewItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedwatch_new_items_total",
			Help: "Total number of new items discovered",
		},
		[]string{"source"},
	)

	// DeferredItemsTotal counts new items held back by the per-run cap
	DeferredItemsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedwatch_deferred_items_total",
			Help: "Total number of new items deferred to a later run by the item cap",
		},
	)

	// SeenItems tracks the size of the seen set after each run
	SeenItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedwatch_seen_items",
			Help: "Number of identifiers in the seen set",
		},
	)

	// SeenEvictedTotal counts identifiers evicted by the retention window
	SeenEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedwatch_seen_evicted_total",
			Help: "Total number of seen identifiers evicted by age",
		},
	)
)

// Run metrics track whole poll cycles
var (
	// RunsTotal counts poll cycles by result
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedwatch_runs_total",
			Help: "Total number of poll cycles",
		},
		[]string{"result"}, // result: success, failure
	)

	// RunDuration measures poll cycle duration
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feedwatch_run_duration_seconds",
			Help:    "Time taken by one poll cycle",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	// PersistErrorsTotal counts failed store saves
	PersistErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedwatch_persist_errors_total",
			Help: "Total number of failed state file writes",
		},
		[]string{"store"}, // store: health, seen
	)
)
