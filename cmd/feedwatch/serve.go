package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"feedwatch/internal/infra/worker"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(a *app) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll on a cron schedule and expose health and metrics endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a, runNow)
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "run one poll cycle immediately instead of waiting for the first tick")
	return cmd
}

func serve(ctx context.Context, a *app, runNow bool) error {
	logger := a.logger

	workerMetrics := worker.NewWorkerMetricsWith(a.registerer)
	wcfg, _ := worker.LoadConfigFromEnv(logger, workerMetrics)
	if err := wcfg.Validate(); err != nil {
		return err
	}
	logger.Info("serve configuration loaded",
		slog.String("cron_schedule", wcfg.CronSchedule),
		slog.String("timezone", wcfg.Timezone),
		slog.Int("health_port", wcfg.HealthPort),
		slog.Int("metrics_port", wcfg.MetricsPort),
		slog.Duration("run_timeout", a.cfg.RunTimeout))

	p := buildPipeline(a.cfg, logger)

	job := func(ctx context.Context) (worker.JobResult, error) {
		res, err := p.poll.RunOnce(ctx)
		return worker.JobResult{RunID: res.RunID, Sources: res.Sources, NewItems: len(res.NewItems)}, err
	}

	healthServer := worker.NewHealthServer(fmt.Sprintf(":%d", wcfg.HealthPort), logger)
	scheduler := worker.NewScheduler(*wcfg, job, a.cfg.RunTimeout, workerMetrics, healthServer, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := healthServer.Start(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return serveMetrics(gctx, wcfg.MetricsPort, newMetricsHandler(a.gatherer, p.dispatcher), logger)
	})
	g.Go(func() error {
		if runNow {
			// Failures are recorded by the scheduler; serve keeps running.
			_ = scheduler.RunJob(context.WithoutCancel(gctx))
		}
		return scheduler.Start(gctx)
	})

	return g.Wait()
}
