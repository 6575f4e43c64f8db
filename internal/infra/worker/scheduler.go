package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobResult is what one scheduled run reports back.
type JobResult struct {
	RunID    string
	Sources  int
	NewItems int
}

// Job performs one poll cycle.
type Job func(ctx context.Context) (JobResult, error)

// Scheduler runs a Job on a cron schedule. Runs never overlap: a tick that
// arrives while the previous run is still going is skipped and counted.
type Scheduler struct {
	cfg        Config
	job        Job
	runTimeout time.Duration
	metrics    *WorkerMetrics
	health     *HealthServer
	logger     *slog.Logger

	running sync.Mutex
}

// NewScheduler creates a Scheduler. health may be nil.
func NewScheduler(cfg Config, job Job, runTimeout time.Duration, metrics *WorkerMetrics, health *HealthServer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:        cfg,
		job:        job,
		runTimeout: runTimeout,
		metrics:    metrics,
		health:     health,
		logger:     logger,
	}
}

// Start schedules the job and blocks until ctx is canceled. A run in progress
// at shutdown is allowed to finish, bounded by the run timeout.
func (s *Scheduler) Start(ctx context.Context) error {
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		s.logger.Error("invalid timezone, using UTC",
			slog.String("timezone", s.cfg.Timezone),
			slog.Any("error", err))
		loc = time.UTC
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{s.logger}),
		cron.WithChain(cron.Recover(cronLogger{s.logger})),
	)
	runCtx := context.WithoutCancel(ctx)
	if _, err := c.AddFunc(s.cfg.CronSchedule, func() { _ = s.RunJob(runCtx) }); err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}
	c.Start()

	if s.health != nil {
		s.health.SetReady(true)
	}
	s.logger.Info("scheduler started",
		slog.String("schedule", s.cfg.CronSchedule),
		slog.String("timezone", loc.String()))

	<-ctx.Done()

	if s.health != nil {
		s.health.SetReady(false)
	}
	s.logger.Info("scheduler stopping, waiting for running job")
	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// RunJob executes the job once with the run timeout applied and records the
// outcome. It returns the job's error, or nil when the run was skipped because
// another run was in progress.
func (s *Scheduler) RunJob(ctx context.Context) error {
	if !s.running.TryLock() {
		s.metrics.RecordJobRun("skipped")
		s.logger.Warn("previous poll cycle still running, skipping this tick")
		return nil
	}
	defer s.running.Unlock()

	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	start := time.Now()
	s.logger.Info("scheduled poll cycle started")

	result, err := s.job(ctx)
	duration := time.Since(start)
	s.metrics.RecordJobDuration(duration)

	if s.health != nil {
		s.health.RecordRun(result.RunID, time.Now(), err)
	}

	if err != nil {
		s.metrics.RecordJobRun("failure")
		s.logger.Error("scheduled poll cycle failed",
			slog.String("run_id", result.RunID),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return err
	}

	s.metrics.RecordJobRun("success")
	s.metrics.RecordJobSuccess(result.Sources, result.NewItems)
	s.logger.Info("scheduled poll cycle completed",
		slog.String("run_id", result.RunID),
		slog.Int("sources", result.Sources),
		slog.Int("new_items", result.NewItems),
		slog.Duration("duration", duration))
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{slog.Any("error", err)}, keysAndValues...)...)
}
