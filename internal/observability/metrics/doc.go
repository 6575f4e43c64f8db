// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all poller metrics including:
//   - Fetch attempts, outcomes and durations per source
//   - Source health gauges (disabled flag, failure streak)
//   - New, deferred and seen item counts
//   - Poll cycle results and state persistence errors
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint in serve mode.
//
// Example usage:
//
//	import "feedwatch/internal/observability/metrics"
//
//	func fetchSource(name string) {
//	    start := time.Now()
//	    // ... fetch ...
//	    metrics.RecordFetchAttempt(name, "success")
//	    metrics.RecordFetchOutcome(name, "success", time.Since(start))
//	}
package metrics
