// Package observability provides the logging, metrics and tracing infrastructure
// shared by the poller and its maintenance commands.
//
// Subpackages:
//   - logging: Structured logging setup with slog
//   - metrics: Prometheus metrics registry and recorders
//   - tracing: OpenTelemetry spans for poll cycles and source fetches
//
// Example usage:
//
//	import (
//	    "feedwatch/internal/observability/logging"
//	    "feedwatch/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger(logging.FromEnv())
//	    logger.Info("poller started")
//
//	    metrics.RecordNewItems("example-source", 3)
//	}
package observability
