package metrics

import (
	"time"
)

// RecordFetchAttempt records one classified attempt against a source.
func RecordFetchAttempt(source, class string) {
	FetchAttemptsTotal.WithLabelValues(source, class).Inc()
}

// RecordFetchOutcome records the terminal state and total duration of a fetch.
func RecordFetchOutcome(source, state string, duration time.Duration) {
	FetchOutcomesTotal.WithLabelValues(source, state).Inc()
	FetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordFetchSkipped records a source skipped without any attempt.
// Reason should be "disabled" (configuration) or "unhealthy" (health store).
func RecordFetchSkipped(reason string) {
	FetchSkippedTotal.WithLabelValues(reason).Inc()
}

// UpdateSourceHealth mirrors a source's health record into gauges.
func UpdateSourceHealth(source string, disabled bool, consecutiveFailures int) {
	v := 0.0
	if disabled {
		v = 1
	}
	SourceDisabled.WithLabelValues(source).Set(v)
	SourceConsecutiveFailures.WithLabelValues(source).Set(float64(consecutiveFailures))
}

// RecordNewItems records items discovered as new for a source.
func RecordNewItems(source string, count int) {
	if count <= 0 {
		return
	}
	NewItemsTotal.WithLabelValues(source).Add(float64(count))
}

// RecordDeferredItems records new items held back by the per-run cap.
func RecordDeferredItems(count int) {
	if count <= 0 {
		return
	}
	DeferredItemsTotal.Add(float64(count))
}

// RecordSeenEviction records an eviction pass and the resulting set size.
func RecordSeenEviction(evicted, remaining int) {
	if evicted > 0 {
		SeenEvictedTotal.Add(float64(evicted))
	}
	SeenItems.Set(float64(remaining))
}

// UpdateSeenItems sets the seen-set size gauge.
func UpdateSeenItems(count int) {
	SeenItems.Set(float64(count))
}

// RecordRun records a completed poll cycle.
func RecordRun(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	RunsTotal.WithLabelValues(result).Inc()
	RunDuration.Observe(duration.Seconds())
}

// RecordPersistError records a failed save of the named store.
func RecordPersistError(store string) {
	PersistErrorsTotal.WithLabelValues(store).Inc()
}
