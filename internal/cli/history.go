package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"fs-expire/internal/config"
	"fs-expire/internal/store"
	"fs-expire/internal/units"

	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the daemon's most recent expiration runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := a.configPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}
			s, err := store.NewStore(cfg.DBPath)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.RecentRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tTARGET\tPOLICY\tSCANNED\tFREED\tSTATUS")
			for _, r := range runs {
				status := "ok"
				if r.Error != "" {
					status = "error: " + r.Error
				} else if r.DryRun {
					status = "dry run"
				}
				fmt.Fprintf(w, "%s\t%s %s\t%s\t%s (%d)\t%s (%d)\t%s\n",
					r.StartedAt.Local().Format(time.DateTime),
					r.Mode, units.Format(r.Bytes),
					r.Policy,
					units.Format(r.DiscoveredBytes), r.DiscoveredFiles,
					units.Format(r.FreedBytes), r.FreedFiles,
					strings.ReplaceAll(status, "\n", " "))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			total, err := s.TotalFreed()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nTotal freed: %s\n", units.Format(total))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}
