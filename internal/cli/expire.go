package cli

import (
	"errors"
	"fmt"

	"fs-expire/internal/expire"
	"fs-expire/internal/policy"
	"fs-expire/internal/pruner"
	"fs-expire/internal/units"

	"github.com/spf13/cobra"
)

func newExpireCmd(a *app) *cobra.Command {
	var (
		del, free, keep  units.Size
		lru, mru, random bool
		dryRun           bool
	)

	cmd := &cobra.Command{
		Use:     "expire {--delete SIZE | --ensure-free SIZE | --keep SIZE} [flags] DIR...",
		Aliases: []string{"expire-cache"},
		Short:   "Delete files from cache directories until a space target is met",
		Long: `Scans DIR... as one tree and deletes files in eviction order until the
target holds. SIZE is a number of bytes with an optional K, M, G, T, P, E, Z
or Y prefix: "B" or no suffix steps by 1000, "iB" steps by 1024.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &UsageError{Err: errors.New("at least one directory is required")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var c expire.Constraint
			switch {
			case cmd.Flags().Changed("delete"):
				c = expire.DeleteBytes(del.Bytes)
			case cmd.Flags().Changed("ensure-free"):
				c = expire.EnsureFreeBytes(free.Bytes)
			default:
				c = expire.KeepAtMostBytes(keep.Bytes)
			}

			p := policy.OldestFirst
			switch {
			case mru:
				p = policy.NewestFirst
			case random:
				p = policy.Random
			}

			_, err := pruner.RunJob(pruner.Job{
				Dirs:       args,
				Constraint: c,
				Policy:     p,
				DryRun:     dryRun,
			}, a.logger)
			if errors.Is(err, pruner.ErrInvalidJob) {
				return &UsageError{Err: err}
			}
			if err != nil {
				return fmt.Errorf("expire: %w", err)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.Var(&del, "delete", "delete SIZE of data")
	f.VarP(&free, "ensure-free", "f", "delete until the filesystem has SIZE free")
	f.Var(&keep, "keep", "delete until the directories hold at most SIZE")
	cmd.MarkFlagsMutuallyExclusive("delete", "ensure-free", "keep")
	cmd.MarkFlagsOneRequired("delete", "ensure-free", "keep")

	f.BoolVar(&lru, "lru", false, "evict least recently modified files first (default)")
	f.BoolVar(&mru, "mru", false, "evict most recently modified files first")
	f.BoolVar(&random, "random", false, "evict files in random order")
	cmd.MarkFlagsMutuallyExclusive("lru", "mru", "random")

	f.BoolVarP(&dryRun, "dry-run", "n", false, "report what would be deleted without deleting")
	return cmd
}
