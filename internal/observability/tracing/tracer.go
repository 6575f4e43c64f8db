package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "feedwatch"

// GetTracer returns the tracer for creating spans.
// It is resolved from the global provider on each call so a provider installed
// after package initialization is honored.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartRun starts the root span of one poll cycle.
func StartRun(ctx context.Context, runID string, sources int) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "poll.run",
		trace.WithAttributes(
			attribute.String("feedwatch.run_id", runID),
			attribute.Int("feedwatch.sources", sources),
		))
}

// StartFetch starts the span covering every attempt against one source.
func StartFetch(ctx context.Context, source, url string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "fetch.source",
		trace.WithAttributes(
			attribute.String("feedwatch.source", source),
			attribute.String("url.full", url),
		))
}

// EndFetch records the terminal state of a fetch on span and ends it.
// statusCode is 0 when no HTTP status was observed.
func EndFetch(span trace.Span, state string, attempts, statusCode, items int) {
	span.SetAttributes(
		attribute.String("feedwatch.fetch.state", state),
		attribute.Int("feedwatch.fetch.attempts", attempts),
		attribute.Int("feedwatch.fetch.items", items),
	)
	if statusCode != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", statusCode))
	}
	if state != "success" {
		span.SetStatus(codes.Error, state)
	}
	span.End()
}
