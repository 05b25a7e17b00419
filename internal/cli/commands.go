package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"runtime"
	"strings"

	"fs-expire/internal/config"
	"fs-expire/internal/logger"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// Check if running as Admin/Root
func isAdmin() bool {
	if runtime.GOOS == "windows" {
		_, err := os.Open("\\\\.\\PHYSICALDRIVE0")
		return err == nil
	}
	currentUser, err := user.Current()
	if err != nil {
		return false
	}
	return currentUser.Uid == "0"
}

// prompt asks for a value on in, falling back to defaultValue on an empty
// line or end of input.
func prompt(in *bufio.Reader, out io.Writer, label string, defaultValue string) string {
	fmt.Fprintf(out, "%s [%s]: ", label, defaultValue)
	input, _ := in.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue
	}
	return input
}

// installConfig writes a daemon config for dirs at path unless one exists.
// Missing settings are asked for interactively.
func installConfig(cmd *cobra.Command, path string, dirs []string) (*config.Config, error) {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "-> Found existing config at %s. Skipping configuration.\n", path)
		return config.Load(path)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, &UsageError{Err: errors.New("no config found: pass the directories to expire")}
	}
	cfg.Targets = dirs

	fmt.Fprintln(out, "-> Generating new configuration...")
	fmt.Fprintln(out, "Tip: Press [Enter] to accept the default value shown in brackets [].")
	in := bufio.NewReader(cmd.InOrStdin())
	cfg.Mode = prompt(in, out, "Target mode (delete/ensure-free/keep)", cfg.Mode)
	cfg.Size = prompt(in, out, "Target size", cfg.Size)
	cfg.Policy = prompt(in, out, "Eviction policy (lru/mru/random)", cfg.Policy)
	cfg.Interval = prompt(in, out, "Run interval", cfg.Interval)

	if err := cfg.Validate(); err != nil {
		return nil, &UsageError{Err: err}
	}
	if err := config.Save(path, cfg); err != nil {
		return nil, fmt.Errorf("error saving config: %w", err)
	}
	fmt.Fprintln(out, "-> Configuration saved.")
	return cfg, nil
}

// serviceCmds are the commands that manage fsx as a system service.
func serviceCmds(a *app) []*cobra.Command {
	s := a.svc

	installCmd := &cobra.Command{
		Use:   "install [DIR...]",
		Short: "Write a daemon config for DIR... and register the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !isAdmin() {
				fmt.Fprintln(out, "Warning: not running as Administrator/Root. Registering a system service usually needs elevated privileges.")
			}

			cfgPath, err := a.configPath()
			if err != nil {
				return err
			}
			if _, err := installConfig(cmd, cfgPath, args); err != nil {
				return err
			}

			fmt.Fprintln(out, "-> Registering service...")
			if err := s.Install(); err != nil {
				if !strings.Contains(err.Error(), "already exists") {
					return fmt.Errorf("service install failed: %w", err)
				}
				fmt.Fprintln(out, "   Service definition already exists. Reinstalling...")
				_ = s.Uninstall()
				if err := s.Install(); err != nil {
					return fmt.Errorf("service reinstall failed: %w", err)
				}
			}

			fmt.Fprintln(out, "-> Starting service...")
			if err := s.Start(); err != nil {
				fmt.Fprintf(out, "Service start failed (it might be running): %v\n", err)
			}
			fmt.Fprintf(out, "Config: %s\n", cfgPath)
			return nil
		},
	}

	uninstallCmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Uninstall the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.Uninstall(); err != nil {
				return fmt.Errorf("failed to uninstall service: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Service uninstalled.")
			return nil
		},
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.Start(); err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Service started.")
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.Stop(); err != nil {
				return fmt.Errorf("failed to stop: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Service stopped.")
			return nil
		},
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
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

			opts := logger.Options{Verbosity: a.verbosity(), Console: cmd.ErrOrStderr()}
			if cfg.LogPath != "" {
				maxBytes, err := cfg.LogMaxBytes()
				if err != nil {
					return err
				}
				rot := &logger.LogRotator{
					Filename:   cfg.LogPath,
					MaxBytes:   maxBytes,
					MaxBackups: cfg.LogMaxBackups,
					Compress:   true,
				}
				defer rot.Close()
				opts.File = rot
			}

			// errs is never closed; the drain goroutine lives as long as the process.
			errs := make(chan error, 5)
			if svcLogger, err := s.Logger(errs); err == nil {
				opts.Service = svcLogger
				go func() {
					for err := range errs {
						fmt.Fprintln(cmd.ErrOrStderr(), "service logger:", err)
					}
				}()
			}

			a.daemon.Logger = logger.Setup(opts)
			a.daemon.Cfg = cfg
			a.daemon.CfgPath = cfgPath
			return s.Run()
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := s.Status()
			if err != nil {
				return fmt.Errorf("error getting status: %w", err)
			}
			switch status {
			case service.StatusRunning:
				fmt.Fprintln(cmd.OutOrStdout(), "Running")
			case service.StatusStopped:
				fmt.Fprintln(cmd.OutOrStdout(), "Stopped")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "Unknown/Other")
			}
			return nil
		},
	}

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon's log file",
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

			f, err := os.Open(cfg.LogPath)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "No logs found.")
					return nil
				}
				return fmt.Errorf("error opening log file: %w", err)
			}
			defer f.Close()
			if _, err := io.Copy(cmd.OutOrStdout(), f); err != nil {
				return fmt.Errorf("error reading logs: %w", err)
			}
			return nil
		},
	}

	return []*cobra.Command{installCmd, uninstallCmd, startCmd, stopCmd, runCmd, statusCmd, logsCmd}
}
