package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"fs-expire/internal/diskusage"
	"fs-expire/internal/units"

	"github.com/spf13/cobra"
)

func newDfCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "df DIR...",
		Short: "Show the size and free space of the filesystems holding DIR...",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &UsageError{Err: errors.New("at least one directory is required")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tTYPE\tTOTAL\tUSED\tFREE")
			for _, dir := range args {
				u, err := diskusage.Get(dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					u.Path, u.Fstype, units.Format(u.Total), units.Format(u.Used), units.Format(u.Free))
			}
			return w.Flush()
		},
	}
}
