package cli

import (
	"fs-expire/internal/journal"

	"github.com/spf13/cobra"
)

func newRotateJournalsCmd(a *app) *cobra.Command {
	opts := journal.Options{}

	cmd := &cobra.Command{
		Use:   "rotate-journals --prefix PREFIX",
		Short: "Compress and delete old numbered journals",
		Long: `Orders PREFIX.jnl* from newest to oldest by their numeric suffix. The
first --skip-journals are left alone, the rest up to --keep-journals are
gzipped and anything beyond is deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Logger = a.logger
			_, err := journal.Rotate(opts)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Prefix, "prefix", "", "journal path without the .jnl suffix")
	f.StringVar(&opts.Root, "root", "", "directory relative prefixes are resolved against")
	f.IntVar(&opts.Skip, "skip-journals", 1, "number of newest journals left uncompressed, all when negative")
	f.IntVar(&opts.Keep, "keep-journals", -1, "number of journals kept on disk, all when negative")
	f.BoolVarP(&opts.DryRun, "dry-run", "n", false, "report what would change without changing it")
	cmd.MarkFlagRequired("prefix")
	return cmd
}
