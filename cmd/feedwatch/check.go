package main

import (
	"errors"
	"fmt"

	"feedwatch/internal/feedconfig"
	"feedwatch/internal/infra/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var errCheckFailed = errors.New("configuration check failed")

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the feeds file, webhooks and schedule without fetching anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ok := true

			sources, err := feedconfig.Load(a.cfg.FeedsFile)
			if err != nil {
				ok = false
				fmt.Fprintf(out, "FAIL feeds: %v\n", err)
			} else {
				enabled := 0
				for _, src := range sources {
					if src.Enabled {
						enabled++
					}
				}
				fmt.Fprintf(out, "OK   feeds: %d sources (%d enabled) in %s\n", len(sources), enabled, a.cfg.FeedsFile)
			}

			channels := 0
			for _, ch := range []struct{ name, url string }{
				{"discord", a.cfg.DiscordWebhookURL},
				{"slack", a.cfg.SlackWebhookURL},
			} {
				if ch.url != "" {
					channels++
					fmt.Fprintf(out, "OK   %s webhook configured\n", ch.name)
				}
			}
			if channels == 0 {
				ok = false
				fmt.Fprintln(out, "FAIL notifications: no valid DISCORD_WEBHOOK_URL or SLACK_WEBHOOK_URL")
			}

			// check exposes no metrics, so a private registry absorbs them.
			wcfg, warnings := worker.LoadConfigFromEnv(a.logger, worker.NewWorkerMetricsWith(prometheus.NewRegistry()))
			if len(warnings) > 0 {
				ok = false
				for _, warning := range warnings {
					fmt.Fprintf(out, "FAIL serve: %s\n", warning)
				}
			} else {
				fmt.Fprintf(out, "OK   serve: schedule %q in %s\n", wcfg.CronSchedule, wcfg.Timezone)
			}

			fmt.Fprintf(out, "     state: health %s, seen %s\n", a.cfg.HealthFile, a.cfg.SeenFile)

			if !ok {
				return errCheckFailed
			}
			return nil
		},
	}
}
