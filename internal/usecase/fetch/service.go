package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/observability/metrics"
	"feedwatch/internal/resilience/retry"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of sources fetched at once.
const DefaultConcurrency = 8

// Fetcher fetches one source. *Worker implements it.
type Fetcher interface {
	Fetch(ctx context.Context, src entity.Source, view HealthView) Outcome
}

// HealthStore is the part of the health store the orchestrator mutates.
type HealthStore interface {
	HealthView
	RecordOutcome(name string, success bool, statusCode *int) entity.HealthRecord
}

// SeenStore is the part of the seen store the orchestrator uses.
type SeenStore interface {
	Contains(id string) bool
	Record(id string, t time.Time)
}

// Config holds the orchestrator settings.
type Config struct {
	// MaxItemsPerRun caps the new items admitted in one run. Zero or less means no cap.
	// Items beyond the cap are not recorded as seen and surface in a later run.
	MaxItemsPerRun int

	// Concurrency bounds simultaneous fetches. Zero or less uses DefaultConcurrency.
	Concurrency int
}

// RunStats summarizes one orchestrator run.
type RunStats struct {
	Sources   int
	Skipped   int
	Succeeded int
	Failed    int
	Canceled  int
	Entries   int
	NewItems  int
	Deferred  int
	Duration  time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used to stamp seen records.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service is the fetch orchestrator.
type Service struct {
	fetcher Fetcher
	health  HealthStore
	seen    SeenStore
	cfg     Config
	now     func() time.Time
	logger  *slog.Logger
}

// NewService creates a fetch orchestrator.
func NewService(fetcher Fetcher, health HealthStore, seen SeenStore, cfg Config, opts ...Option) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	s := &Service{
		fetcher: fetcher,
		health:  health,
		seen:    seen,
		cfg:     cfg,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run fetches every source and returns the items not seen before, ordered by source
// list position and then by position within the feed.
//
// Fetches run concurrently and never mutate the stores. Once all of them have
// finished, outcomes are applied in source order: the health store records each
// counted outcome, and every entry whose identifier is not yet in the seen store is
// recorded there and returned. An identifier is therefore reported at most once per
// run, even when several feeds or one feed list it more than once.
func (s *Service) Run(ctx context.Context, sources []entity.Source) ([]entity.NewItem, RunStats) {
	start := time.Now()
	stats := RunStats{Sources: len(sources)}

	outcomes := make([]Outcome, len(sources))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i := range sources {
		i := i
		g.Go(func() error {
			outcomes[i] = s.fetchIsolated(ctx, sources[i])
			return nil
		})
	}
	_ = g.Wait()

	var items []entity.NewItem
	now := s.now()
	for i, out := range outcomes {
		src := sources[i]

		switch {
		case out.Skipped:
			stats.Skipped++
			metrics.RecordFetchSkipped(out.SkipReason)
			s.logger.Debug("source skipped",
				slog.String("source", src.Name),
				slog.String("reason", out.SkipReason))
			continue
		case out.Canceled:
			stats.Canceled++
			continue
		}

		rec := s.health.RecordOutcome(src.Name, out.Success, out.StatusCode)
		metrics.UpdateSourceHealth(src.Name, rec.Disabled, rec.ConsecutiveFailures)

		if !out.Success {
			stats.Failed++
			continue
		}
		stats.Succeeded++
		stats.Entries += len(out.Items)

		admitted := 0
		for _, entry := range out.Items {
			if s.seen.Contains(entry.ID) {
				continue
			}
			if s.cfg.MaxItemsPerRun > 0 && len(items) >= s.cfg.MaxItemsPerRun {
				stats.Deferred++
				continue
			}
			s.seen.Record(entry.ID, now)
			items = append(items, entity.NewItem{
				ID:         entry.ID,
				Title:      entry.Title,
				SourceName: src.Name,
				Summary:    entry.Summary,
				Published:  entry.Published,
			})
			admitted++
		}
		metrics.RecordNewItems(src.Name, admitted)
	}

	stats.NewItems = len(items)
	stats.Duration = time.Since(start)
	metrics.RecordDeferredItems(stats.Deferred)

	if stats.Deferred > 0 {
		s.logger.Warn("item cap reached, deferring remaining new items",
			slog.Int("cap", s.cfg.MaxItemsPerRun),
			slog.Int("deferred", stats.Deferred))
	}
	s.logger.Info("fetch run completed",
		slog.Int("sources", stats.Sources),
		slog.Int("skipped", stats.Skipped),
		slog.Int("succeeded", stats.Succeeded),
		slog.Int("failed", stats.Failed),
		slog.Int("canceled", stats.Canceled),
		slog.Int("entries", stats.Entries),
		slog.Int("new_items", stats.NewItems),
		slog.Duration("duration", stats.Duration))

	return items, stats
}

// fetchIsolated runs one fetch and converts a panic into a failed outcome so one
// source cannot take down the run.
func (s *Service) fetchIsolated(ctx context.Context, src entity.Source) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while fetching source",
				slog.String("source", src.Name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			out = Outcome{
				Source: src.Name,
				State:  retry.StatePermanentFail,
				Err:    fmt.Errorf("fetch panicked: %v", r),
			}
		}
	}()
	return s.fetcher.Fetch(ctx, src, s.health)
}
