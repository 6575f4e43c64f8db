// Command feedwatch polls RSS/Atom feeds, remembers which items it has already
// reported, and posts new items to Discord and Slack webhooks.
//
// Usage:
//
//	feedwatch                        poll once (same as "feedwatch run")
//	feedwatch serve                  poll on a cron schedule with health and metrics endpoints
//	feedwatch health status          show per-source health
//	feedwatch health reset <name>    clear a source's failure streak
//	feedwatch health enable <name>   re-enable a disabled source
//	feedwatch health disable <name>  disable a source
//	feedwatch health cleanup <days>  drop health records idle for more than <days>
//	feedwatch seen cleanup <days>    drop seen items older than <days>
//	feedwatch check                  validate configuration without fetching
//	feedwatch probe                  fetch every feed once and report the result
//
// All settings come from the environment; see internal/config.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"feedwatch/internal/config"
	"feedwatch/internal/observability/logging"
	pkgconfig "feedwatch/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app carries what every command needs. Tests build one around a private registry.
type app struct {
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	logOutput  io.Writer

	logger *slog.Logger
	cfg    *config.AppConfig
}

func newApp() *app {
	return &app{
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
		logOutput:  os.Stderr,
	}
}

func main() {
	a := newApp()
	root := newRootCmd(a)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	var (
		feedsFile  string
		healthFile string
		seenFile   string
	)

	root := &cobra.Command{
		Use:           "feedwatch",
		Short:         "Poll feeds and notify webhooks about new items",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts := logging.FromEnv()
			opts.Output = a.logOutput
			a.logger = logging.NewLogger(opts).With(slog.String("command", cmd.Name()))
			slog.SetDefault(a.logger)

			metrics := pkgconfig.NewConfigMetricsWith(a.registerer, "feedwatch")
			a.cfg = config.LoadFromEnv(a.logger, metrics)
			if feedsFile != "" {
				a.cfg.FeedsFile = feedsFile
			}
			if healthFile != "" {
				a.cfg.HealthFile = healthFile
			}
			if seenFile != "" {
				a.cfg.SeenFile = seenFile
			}

			cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, a)
		},
	}

	root.PersistentFlags().StringVar(&feedsFile, "config", "", "feeds configuration file (overrides FEEDS_CONFIG_FILE)")
	root.PersistentFlags().StringVar(&healthFile, "health-file", "", "health state file (overrides FEED_HEALTH_FILE)")
	root.PersistentFlags().StringVar(&seenFile, "seen-file", "", "seen items file (overrides SEEN_JOBS_FILE)")

	root.AddCommand(
		newRunCmd(a),
		newServeCmd(a),
		newHealthCmd(a),
		newSeenCmd(a),
		newCheckCmd(a),
		newProbeCmd(a),
	)
	return root
}
