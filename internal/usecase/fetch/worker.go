// Package fetch retrieves every configured source concurrently and turns the results
// into the list of items not seen before.
//
// A Worker handles one source: it runs the bounded retry loop and returns an Outcome
// without touching any store. The Service fans workers out, joins them, and applies
// the outcomes to the health and seen stores serially in source order.
package fetch

import (
	"context"
	"log/slog"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/infra/scraper"
	"feedwatch/internal/observability/metrics"
	"feedwatch/internal/observability/tracing"
	"feedwatch/internal/resilience/retry"

	"go.opentelemetry.io/otel/trace"
)

// FeedClient performs one fetch attempt.
type FeedClient interface {
	FetchOnce(ctx context.Context, feedURL string) (scraper.Response, error)
}

// HealthView is the read-only view of the health store a worker consults.
type HealthView interface {
	IsHealthy(name string) bool
}

// Skip reasons reported in Outcome.SkipReason.
const (
	SkipDisabled  = "disabled"
	SkipUnhealthy = "unhealthy"
)

// Outcome is the result of fetching one source.
type Outcome struct {
	Source string

	// Skipped is set when no attempt was made. Skipped outcomes carry no health update.
	Skipped    bool
	SkipReason string

	// Canceled is set when the run context ended before a terminal state was reached.
	// Canceled outcomes carry no health update either.
	Canceled bool

	Success bool
	Items   []entity.FeedItem

	State    retry.State
	Attempts int

	// StatusCode is the last HTTP status observed, nil when none was.
	StatusCode *int

	// Err is the error of the last attempt, nil on success.
	Err error

	Duration time.Duration
}

// Counted reports whether the outcome must be applied to the health store.
func (o Outcome) Counted() bool {
	return !o.Skipped && !o.Canceled
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithSleeper replaces the real-time sleeper used between attempts.
func WithSleeper(s retry.Sleeper) WorkerOption {
	return func(w *Worker) {
		if s != nil {
			w.sleeper = s
		}
	}
}

// WithWorkerLogger sets the logger.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Worker fetches a single source with classified retries.
// A Worker holds no per-source state and is safe for concurrent use.
type Worker struct {
	client  FeedClient
	policy  retry.Policy
	sleeper retry.Sleeper
	logger  *slog.Logger
}

// NewWorker creates a Worker.
func NewWorker(client FeedClient, policy retry.Policy, opts ...WorkerOption) *Worker {
	w := &Worker{
		client:  client,
		policy:  policy,
		sleeper: retry.ContextSleeper{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Fetch retrieves src. Sources that are not enabled in configuration or that the
// health view reports unhealthy are skipped without any attempt.
func (w *Worker) Fetch(ctx context.Context, src entity.Source, view HealthView) (out Outcome) {
	out.Source = src.Name

	if !src.Enabled {
		out.Skipped, out.SkipReason = true, SkipDisabled
		return out
	}
	if view != nil && !view.IsHealthy(src.Name) {
		out.Skipped, out.SkipReason = true, SkipUnhealthy
		return out
	}

	logger := w.logger.With(slog.String("source", src.Name))
	start := time.Now()
	defer func() { out.Duration = time.Since(start) }()

	feedURL, err := src.FeedURL()
	if err != nil {
		logger.Error("invalid feed url", slog.Any("error", err))
		out.State, out.Err = retry.StatePermanentFail, err
		return out
	}

	ctx, span := tracing.StartFetch(ctx, src.Name, feedURL)
	machine := retry.NewMachine(w.policy)

	for {
		resp, err := w.client.FetchOnce(ctx, feedURL)
		if ctx.Err() != nil {
			out.Canceled, out.Err = true, ctx.Err()
			out.Attempts = machine.Attempts()
			logger.Warn("fetch canceled", slog.Any("error", ctx.Err()))
			tracing.EndFetch(span, "canceled", out.Attempts, 0, 0)
			return out
		}

		result := retry.ResultFrom(resp.StatusCode, err, resp.RetryAfter)
		metrics.RecordFetchAttempt(src.Name, result.Class.String())
		d := machine.Step(result)

		out.State, out.Attempts, out.StatusCode, out.Err = d.State, d.Attempt, d.LastStatus, err

		switch d.State {
		case retry.StateSuccess:
			out.Success, out.Items = true, resp.Items
			logger.Info("feed fetched",
				slog.Int("attempt", d.Attempt),
				slog.Int("items", len(resp.Items)))
			w.finish(span, out, start)
			return out

		case retry.StatePermanentFail:
			logger.Warn("feed fetch failed permanently",
				slog.Int("attempt", d.Attempt),
				slog.Int("status_code", resp.StatusCode),
				slog.String("class", result.Class.String()),
				slog.Any("error", err))
			w.finish(span, out, start)
			return out

		case retry.StateExhausted:
			logger.Warn("feed fetch failed after all attempts",
				slog.Int("attempts", d.Attempt),
				slog.String("class", result.Class.String()),
				slog.Any("error", err))
			w.finish(span, out, start)
			return out
		}

		if d.RetryAfterCapped {
			logger.Warn("Retry-After exceeds limit, shortening wait",
				slog.Duration("requested", result.RetryAfter),
				slog.Duration("limit", d.Delay))
		}
		if result.Class == retry.ClassRateLimited {
			logger.Warn("rate limited, backing off",
				slog.Int("attempt", d.Attempt),
				slog.Duration("retry_after", d.Delay))
		} else {
			logger.Warn("feed fetch attempt failed, retrying",
				slog.Int("attempt", d.Attempt),
				slog.Int("max_attempts", w.policy.MaxAttempts),
				slog.String("class", result.Class.String()),
				slog.Duration("delay", d.Delay),
				slog.Any("error", err))
		}

		if err := w.sleeper.Sleep(ctx, d.Delay); err != nil {
			out.Canceled, out.Err = true, err
			logger.Warn("fetch canceled during backoff", slog.Any("error", err))
			tracing.EndFetch(span, "canceled", out.Attempts, 0, 0)
			return out
		}
	}
}

func (w *Worker) finish(span trace.Span, out Outcome, start time.Time) {
	status := 0
	if out.StatusCode != nil {
		status = *out.StatusCode
	}
	metrics.RecordFetchOutcome(out.Source, out.State.String(), time.Since(start))
	tracing.EndFetch(span, out.State.String(), out.Attempts, status, len(out.Items))
}
