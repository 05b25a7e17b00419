package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fs-expire/internal/config"
	"fs-expire/internal/journal"
	"fs-expire/internal/pruner"
	"fs-expire/internal/store"
	"fs-expire/internal/watcher"

	"github.com/kardianos/service"
	"golang.org/x/sync/errgroup"
)

// Daemon implements the service.Interface required by kardianos/service.
// It acts as the controller for the daemon's lifecycle events.
type Daemon struct {
	Logger     *slog.Logger
	Cfg        *config.Config
	CfgPath    string // defaults to config.json next to the executable
	DbStore    *store.Store
	PrunerSvc  *pruner.Pruner
	WatcherSvc *watcher.Watcher

	cancel context.CancelFunc
	group  *errgroup.Group
}

// DefaultConfigPath is config.json in the executable's directory.
func DefaultConfigPath() (string, error) {
	ex, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(ex), "config.json"), nil
}

// JobFromConfig builds the expire job the daemon runs on every tick.
func JobFromConfig(cfg *config.Config) (pruner.Job, error) {
	c, err := cfg.Constraint()
	if err != nil {
		return pruner.Job{}, err
	}
	p, err := cfg.EvictionPolicy()
	if err != nil {
		return pruner.Job{}, err
	}
	return pruner.Job{Dirs: cfg.Targets, Constraint: c, Policy: p, DryRun: cfg.DryRun}, nil
}

// Start is called when the service is started. It must not block: the
// pruner and watcher loops run in the background until Stop.
func (d *Daemon) Start(s service.Service) error {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}

	if d.Cfg == nil {
		cfgPath := d.CfgPath
		if cfgPath == "" {
			var err error
			if cfgPath, err = DefaultConfigPath(); err != nil {
				return err
			}
		}

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		d.Cfg = cfg

		// Leave a config behind for the user to edit.
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			if err := config.Save(cfgPath, d.Cfg); err != nil {
				d.Logger.Warn("Failed to write default config", "path", cfgPath, "error", err)
			}
		}
	}

	if err := d.Cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	job, err := JobFromConfig(d.Cfg)
	if err != nil {
		return err
	}
	interval, _ := d.Cfg.IntervalDuration()
	debounce, _ := d.Cfg.Debounce()

	if err := os.MkdirAll(filepath.Dir(d.Cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	d.DbStore, err = store.NewStore(d.Cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init store at %s: %w", d.Cfg.DBPath, err)
	}

	d.PrunerSvc = pruner.NewPruner(job, interval, d.DbStore, d.Logger)
	if j := d.Cfg.Journal; j.Prefix != "" {
		d.PrunerSvc.Journal = &journal.Options{Prefix: j.Prefix, Root: j.Root, Skip: j.Skip, Keep: j.Keep}
	}

	if d.Cfg.Watch {
		d.WatcherSvc, err = watcher.NewWatcher(d.Cfg.Targets, debounce, func(string) {
			d.PrunerSvc.Trigger()
		}, d.Logger)
		if err != nil {
			d.DbStore.Close()
			return fmt.Errorf("failed to start watcher: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.group, ctx = errgroup.WithContext(ctx)
	d.group.Go(func() error { return d.PrunerSvc.Run(ctx) })
	if d.WatcherSvc != nil {
		d.group.Go(func() error { return d.WatcherSvc.Run(ctx) })
	}

	d.Logger.Info("fsx daemon started",
		"targets", d.Cfg.Targets,
		"target", job.Constraint.String(),
		"policy", job.Policy.String(),
		"interval", interval,
		"watch", d.Cfg.Watch)
	return nil
}

// Stop is called when the service is being stopped. It waits for a run in
// progress to finish.
func (d *Daemon) Stop(s service.Service) error {
	if d.Logger != nil {
		d.Logger.Info("Stopping fsx daemon...")
	}
	if d.cancel != nil {
		d.cancel()
	}

	var err error
	if d.group != nil {
		err = d.group.Wait()
	}
	if d.WatcherSvc != nil {
		d.WatcherSvc.Close()
	}
	if d.DbStore != nil {
		d.DbStore.Close()
	}
	return err
}
