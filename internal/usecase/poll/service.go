// Package poll runs one complete poll cycle: load configuration and state, fetch
// every source, persist both stores, then hand the new items to the dispatcher.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/feedconfig"
	"feedwatch/internal/observability/metrics"
	"feedwatch/internal/observability/tracing"
	"feedwatch/internal/store/health"
	"feedwatch/internal/store/seen"
	"feedwatch/internal/usecase/fetch"
	"feedwatch/internal/usecase/notify"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
)

// ErrNoSourcesNoState is returned when the feeds document cannot be loaded and
// there is no persisted health or seen state to carry forward.
var ErrNoSourcesNoState = errors.New("no feed configuration and no prior state")

// Orchestrator fetches all sources and returns the new items. *fetch.Service implements it.
type Orchestrator interface {
	Run(ctx context.Context, sources []entity.Source) ([]entity.NewItem, fetch.RunStats)
}

// Dispatcher delivers new items. *notify.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, items []entity.NewItem) notify.DispatchStats
}

// Config holds the file locations and retention used by a poll cycle.
type Config struct {
	FeedsFile  string
	HealthFile string
	SeenFile   string

	// SeenRetentionDays evicts seen records older than this before fetching.
	// Zero or less disables eviction.
	SeenRetentionDays int
}

// Result summarizes one poll cycle.
type Result struct {
	RunID string

	// ConfigErr is the feeds document load error, if any. The cycle still runs
	// with zero sources when prior state exists.
	ConfigErr error

	Sources  int
	Evicted  int
	Fetch    fetch.RunStats
	NewItems []entity.NewItem
	Dispatch notify.DispatchStats
	Duration time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service runs poll cycles.
type Service struct {
	cfg          Config
	health       *health.Store
	seen         *seen.Store
	orchestrator Orchestrator
	dispatcher   Dispatcher
	logger       *slog.Logger
}

// NewService creates a poll Service. The orchestrator must share healthStore and
// seenStore, which RunOnce reloads from disk at the start of every cycle.
func NewService(cfg Config, healthStore *health.Store, seenStore *seen.Store, orchestrator Orchestrator, dispatcher Dispatcher, opts ...Option) *Service {
	s := &Service{
		cfg:          cfg,
		health:       healthStore,
		seen:         seenStore,
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce performs one poll cycle.
//
// The only error returned is ErrNoSourcesNoState. Every other failure (an
// unreadable store, a failing source, a store that cannot be written, a webhook
// that rejects a batch) is logged and the cycle continues.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{RunID: uuid.New().String()}
	logger := s.logger.With(slog.String("run_id", res.RunID))

	sources, cfgErr := feedconfig.Load(s.cfg.FeedsFile)
	if cfgErr != nil {
		res.ConfigErr = cfgErr
		logger.Error("failed to load feed configuration, continuing with zero sources",
			slog.String("path", s.cfg.FeedsFile),
			slog.Any("error", cfgErr))
	}
	res.Sources = len(sources)

	ctx, span := tracing.StartRun(ctx, res.RunID, len(sources))
	defer span.End()

	if err := s.health.Load(s.cfg.HealthFile); err != nil {
		logger.Warn("health state unreadable, starting empty",
			slog.String("path", s.cfg.HealthFile),
			slog.Any("error", err))
	}
	if _, err := s.seen.Load(s.cfg.SeenFile); err != nil {
		logger.Warn("seen items unreadable, starting empty",
			slog.String("path", s.cfg.SeenFile),
			slog.Any("error", err))
	}

	if cfgErr != nil && s.health.Len() == 0 && s.seen.Len() == 0 {
		res.Duration = time.Since(start)
		metrics.RecordRun(false, res.Duration)
		span.SetStatus(codes.Error, "no configuration and no prior state")
		return res, fmt.Errorf("%w: %w", ErrNoSourcesNoState, cfgErr)
	}

	if s.cfg.SeenRetentionDays > 0 {
		res.Evicted = s.seen.EvictOlderThan(s.cfg.SeenRetentionDays)
		metrics.RecordSeenEviction(res.Evicted, s.seen.Len())
		if res.Evicted > 0 {
			logger.Info("evicted old seen items",
				slog.Int("evicted", res.Evicted),
				slog.Int("retention_days", s.cfg.SeenRetentionDays))
		}
	}

	logger.Info("poll cycle started",
		slog.Int("sources", len(sources)),
		slog.Int("seen_items", s.seen.Len()),
		slog.Int("health_records", s.health.Len()))

	res.NewItems, res.Fetch = s.orchestrator.Run(ctx, sources)

	s.persist(logger)

	res.Dispatch = s.dispatcher.Dispatch(ctx, res.NewItems)

	res.Duration = time.Since(start)
	metrics.RecordRun(true, res.Duration)
	logger.Info("poll cycle completed",
		slog.Int("new_items", len(res.NewItems)),
		slog.Int("failed_sources", res.Fetch.Failed),
		slog.Int("delivered_batches", res.Dispatch.Delivered),
		slog.Duration("duration", res.Duration))

	return res, nil
}

// persist writes both stores. Write failures are logged; the in-memory state is
// kept and the next cycle reloads whatever is on disk.
func (s *Service) persist(logger *slog.Logger) {
	if err := s.health.Save(s.cfg.HealthFile); err != nil {
		metrics.RecordPersistError("health")
		logger.Warn("failed to save health state",
			slog.String("path", s.cfg.HealthFile),
			slog.Any("error", err))
	}
	if err := s.seen.Save(s.cfg.SeenFile); err != nil {
		metrics.RecordPersistError("seen")
		logger.Warn("failed to save seen items",
			slog.String("path", s.cfg.SeenFile),
			slog.Any("error", err))
	}
	metrics.UpdateSeenItems(s.seen.Len())
}
