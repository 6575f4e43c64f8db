package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/store/health"

	"github.com/spf13/cobra"
)

func newHealthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Inspect and manage per-source health state",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the health of every source with recorded state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := loadHealth(a)
				if err != nil {
					return err
				}
				writeHealthReport(cmd.OutOrStdout(), store)
				return nil
			},
		},
		newHealthMutationCmd(a, "reset", "Clear a source's failure streak and re-enable it", "Reset health status for feed",
			(*health.Store).Reset),
		newHealthMutationCmd(a, "enable", "Re-enable a disabled source", "Enabled feed",
			(*health.Store).Enable),
		newHealthMutationCmd(a, "disable", "Disable a source until it is enabled again", "Disabled feed",
			(*health.Store).Disable),
		&cobra.Command{
			Use:   "cleanup <days>",
			Short: "Remove health records with no activity in the last <days> days",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				days, err := parseDays(args[0])
				if err != nil {
					return err
				}
				store, err := loadHealth(a)
				if err != nil {
					return err
				}
				before := store.Names()
				removed := store.SweepStale(days)
				if removed == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No old feed health entries to clean up")
					return nil
				}
				for _, name := range before {
					if _, ok := store.Get(name); !ok {
						fmt.Fprintf(cmd.OutOrStdout(), "Removed old health data for: %s\n", name)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleaned up %d old feed health entries\n", removed)
				return saveHealth(a, store)
			},
		},
	)
	return cmd
}

func newHealthMutationCmd(a *app, use, short, done string, mutate func(*health.Store, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			store, err := loadHealth(a)
			if err != nil {
				return err
			}
			if err := mutate(store, name); err != nil {
				if errors.Is(err, entity.ErrNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "Feed '%s' not found in health data.\n", name)
					return nil
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", done, name)
			return saveHealth(a, store)
		},
	}
}

// loadHealth reads the health file. Maintenance commands refuse to work on a
// file they cannot read, since saving would overwrite it.
func loadHealth(a *app) (*health.Store, error) {
	store := health.NewStore(a.cfg.FailureThreshold, health.WithLogger(a.logger))
	if err := store.Load(a.cfg.HealthFile); err != nil {
		return nil, err
	}
	return store, nil
}

func saveHealth(a *app, store *health.Store) error {
	if err := store.Save(a.cfg.HealthFile); err != nil {
		return fmt.Errorf("save health state: %w", err)
	}
	return nil
}

func parseDays(arg string) (int, error) {
	days, err := strconv.Atoi(arg)
	if err != nil || days < 1 {
		return 0, fmt.Errorf("days must be a positive integer, got %q", arg)
	}
	return days, nil
}

const reportTimeLayout = "2006-01-02 15:04 UTC"

func formatReportTime(ts *entity.Timestamp, missing string) string {
	if !ts.Valid() {
		return missing
	}
	return ts.UTC().Format(reportTimeLayout)
}

func formatStatusCode(code *int) string {
	if code == nil {
		return "Unknown"
	}
	return strconv.Itoa(*code)
}

// writeHealthReport prints records grouped as healthy, unhealthy and disabled,
// followed by a summary line.
func writeHealthReport(w io.Writer, store *health.Store) {
	if store.Len() == 0 {
		fmt.Fprintln(w, "No feed health data available.")
		return
	}

	groups := map[entity.HealthStatus][]string{}
	records := store.Snapshot()
	for _, name := range store.Names() {
		rec := records[name]
		status := rec.Status()
		groups[status] = append(groups[status], name)
	}

	fmt.Fprint(w, "=== FEED HEALTH STATUS ===\n\n")

	if names := groups[entity.HealthStatusHealthy]; len(names) > 0 {
		fmt.Fprintf(w, "HEALTHY FEEDS (%d):\n", len(names))
		for _, name := range names {
			rec := records[name]
			fmt.Fprintf(w, "  ✓ %s\n", name)
			fmt.Fprintf(w, "    Success Rate: %.1f%% | Last Success: %s\n",
				rec.SuccessRate(), formatReportTime(rec.LastSuccess, "Never"))
		}
		fmt.Fprintln(w)
	}

	failing := []struct {
		status entity.HealthStatus
		title  string
		marker string
	}{
		{entity.HealthStatusUnhealthy, "UNHEALTHY FEEDS", "!"},
		{entity.HealthStatusDisabled, "DISABLED FEEDS", "✗"},
	}
	for _, group := range failing {
		names := groups[group.status]
		if len(names) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s (%d):\n", group.title, len(names))
		for _, name := range names {
			rec := records[name]
			fmt.Fprintf(w, "  %s %s\n", group.marker, name)
			fmt.Fprintf(w, "    Consecutive Failures: %d | Last Status: %s | Last Failure: %s\n",
				rec.ConsecutiveFailures, formatStatusCode(rec.LastStatusCode), formatReportTime(rec.LastFailure, "Unknown"))
		}
		fmt.Fprintln(w)
	}

	healthy := len(groups[entity.HealthStatusHealthy])
	unhealthy := len(groups[entity.HealthStatusUnhealthy])
	disabled := len(groups[entity.HealthStatusDisabled])
	fmt.Fprintf(w, "SUMMARY: %d healthy, %d unhealthy, %d disabled out of %d total feeds\n",
		healthy, unhealthy, disabled, healthy+unhealthy+disabled)
}
