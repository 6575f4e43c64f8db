package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"feedwatch/internal/config"
	"feedwatch/internal/infra/notifier"
	"feedwatch/internal/infra/scraper"
	"feedwatch/internal/store/health"
	"feedwatch/internal/store/seen"
	"feedwatch/internal/usecase/fetch"
	"feedwatch/internal/usecase/notify"
	"feedwatch/internal/usecase/poll"

	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll every configured feed once and notify about new items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, a)
		},
	}
}

func runOnce(cmd *cobra.Command, a *app) error {
	p := buildPipeline(a.cfg, a.logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RunTimeout)
	defer cancel()

	res, err := p.poll.RunOnce(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Checked %d feeds: %d new items, %d failed, %d skipped\n",
		res.Sources, len(res.NewItems), res.Fetch.Failed, res.Fetch.Skipped)
	return nil
}

// pipeline is one fully wired poll cycle.
type pipeline struct {
	poll       *poll.Service
	dispatcher *notify.Dispatcher
}

func buildPipeline(cfg *config.AppConfig, logger *slog.Logger) *pipeline {
	healthStore := health.NewStore(cfg.FailureThreshold, health.WithLogger(logger))
	seenStore := seen.NewStore(seen.WithLogger(logger))

	client := scraper.NewFeedClient(newHTTPClient(cfg.RequestTimeout), cfg.ScraperConfig())
	worker := fetch.NewWorker(client, cfg.RetryPolicy(), fetch.WithWorkerLogger(logger))
	orchestrator := fetch.NewService(worker, healthStore, seenStore, cfg.FetchConfig(), fetch.WithLogger(logger))

	channels := []notify.Channel{
		notify.NewDiscordChannel(cfg.DiscordConfig(), notifier.WithLogger(logger)),
		notify.NewSlackChannel(cfg.SlackConfig(), notifier.WithLogger(logger)),
	}
	dispatcher := notify.NewDispatcher(channels, cfg.NotifyConfig(), notify.WithLogger(logger))

	svc := poll.NewService(cfg.PollConfig(), healthStore, seenStore, orchestrator, dispatcher, poll.WithLogger(logger))
	return &pipeline{poll: svc, dispatcher: dispatcher}
}

// newHTTPClient returns the client used for feed requests. Each attempt is also
// bounded by the scraper's own timeout.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}
