package main

import (
	"fmt"

	"feedwatch/internal/store/seen"

	"github.com/spf13/cobra"
)

func newSeenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seen",
		Short: "Manage the record of already reported items",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup <days>",
		Short: "Forget seen items first reported more than <days> days ago",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := parseDays(args[0])
			if err != nil {
				return err
			}

			store := seen.NewStore(seen.WithLogger(a.logger))
			format, err := store.Load(a.cfg.SeenFile)
			if err != nil {
				return err
			}

			evicted := store.EvictOlderThan(days)
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d seen items older than %d days (%d remaining)\n",
				evicted, days, store.Len())
			// A legacy list is rewritten in object form even when nothing expired.
			if evicted == 0 && format != seen.FormatLegacy {
				return nil
			}
			if err := store.Save(a.cfg.SeenFile); err != nil {
				return fmt.Errorf("save seen items: %w", err)
			}
			return nil
		},
	})
	return cmd
}
