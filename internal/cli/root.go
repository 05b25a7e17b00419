package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"fs-expire/internal/daemon"
	"fs-expire/internal/logger"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// UsageError is a problem with how the command was invoked. Nothing on disk
// has been touched when one is returned.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// app is the state shared by all commands of one invocation.
type app struct {
	svc    service.Service
	daemon *daemon.Daemon

	verbose bool
	quiet   bool
	logFile string
	cfgPath string

	logger  *slog.Logger
	closers []io.Closer
}

func (a *app) verbosity() logger.Verbosity {
	switch {
	case a.quiet:
		return logger.Quiet
	case a.verbose:
		return logger.Verbose
	default:
		return logger.Normal
	}
}

// setupLogger builds the console logger, teeing into --log-file when given.
func (a *app) setupLogger(cmd *cobra.Command) error {
	opts := logger.Options{Verbosity: a.verbosity(), Console: cmd.ErrOrStderr()}
	if a.logFile != "" {
		rot := &logger.LogRotator{Filename: a.logFile, MaxBackups: 5, Compress: true}
		a.closers = append(a.closers, rot)
		opts.File = rot
	}
	a.logger = logger.Setup(opts)
	return nil
}

func (a *app) configPath() (string, error) {
	if a.cfgPath != "" {
		return a.cfgPath, nil
	}
	return daemon.DefaultConfigPath()
}

func (a *app) close() {
	for _, c := range a.closers {
		c.Close()
	}
	a.closers = nil
}

// NewRootCmd creates the root command and all subcommands for the CLI.
// s controls the system service wrapping d.
func NewRootCmd(s service.Service, d *daemon.Daemon) *cobra.Command {
	a := &app{svc: s, daemon: d}

	rootCmd := &cobra.Command{
		Use:           "fsx",
		Short:         "Expire files from disk caches by size, free space or budget",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setupLogger(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log every deleted file")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "only log errors")
	flags.StringVar(&a.logFile, "log-file", "", "also write logs to this file (rotated by size)")
	flags.StringVar(&a.cfgPath, "config", "", "daemon config file (default: config.json next to the executable)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	rootCmd.AddCommand(
		newExpireCmd(a),
		newRotateJournalsCmd(a),
		newDfCmd(a),
		newHistoryCmd(a),
	)
	if s != nil {
		rootCmd.AddCommand(serviceCmds(a)...)
	}
	return rootCmd
}

// Execute runs the command tree and reports an error to stderr. It returns
// the process exit status.
func Execute(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return 0
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	var usage *UsageError
	if errors.As(err, &usage) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Run '%s --help' for usage.\n", cmd.CommandPath())
	}
	return 1
}
