// Package tracing provides OpenTelemetry spans for poll cycles and source fetches.
//
// Spans are created from the global tracer provider. Without an SDK provider installed
// they are no-ops, so instrumented code pays nothing when tracing is not configured.
//
// Example usage:
//
//	ctx, span := tracing.StartRun(ctx, runID, len(sources))
//	defer span.End()
//
//	ctx, fetchSpan := tracing.StartFetch(ctx, src.Name, url)
//	// ... attempts ...
//	tracing.EndFetch(fetchSpan, "success", 1, 200, len(items))
package tracing
