package pruner

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"fs-expire/internal/diskusage"
	"fs-expire/internal/expire"
	"fs-expire/internal/policy"
	"fs-expire/internal/units"
	"fs-expire/internal/walker"
)

// ErrInvalidJob marks a job rejected before anything was scanned or deleted.
var ErrInvalidJob = errors.New("invalid expire job")

// Job is one expiration request over a set of directory trees.
type Job struct {
	Dirs       []string
	Constraint expire.Constraint
	Policy     policy.Policy
	DryRun     bool
}

// Report is the outcome of one job.
type Report struct {
	Job Job
	// Resolved is the constraint the engine ran with. An EnsureFree job
	// already satisfied leaves it unset and Skipped true.
	Resolved expire.Constraint
	Skipped  bool
	Stats    expire.Stats
	Started  time.Time
	Finished time.Time
}

// Validate checks that every directory exists and, for EnsureFree, that they
// share one filesystem. Errors wrap ErrInvalidJob.
func (j Job) Validate() error {
	if len(j.Dirs) == 0 {
		return fmt.Errorf("%w: no directories given", ErrInvalidJob)
	}
	if j.Constraint.Bytes < 0 {
		return fmt.Errorf("%w: negative size", ErrInvalidJob)
	}
	for _, dir := range j.Dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJob, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", ErrInvalidJob, dir)
		}
	}
	if j.Constraint.Mode == expire.EnsureFree {
		if err := diskusage.SameDevice(j.Dirs); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJob, err)
		}
	}
	return nil
}

// RunJob validates job, resolves its constraint against the filesystem and
// runs the eviction engine over all of its directories as one stream.
func RunJob(job Job, logger *slog.Logger) (Report, error) {
	return runJob(job, nil, logger)
}

func runJob(job Job, remover expire.Remover, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	report := Report{Job: job, Started: time.Now()}

	if err := job.Validate(); err != nil {
		return report, err
	}

	logger.Info("Expiring files",
		"dirs", job.Dirs,
		"target", job.Constraint.String(),
		"policy", job.Policy.String(),
		"dry_run", job.DryRun)

	usage, err := diskusage.Get(job.Dirs[0])
	if err != nil {
		return report, err
	}
	logger.Info("Filesystem usage",
		"path", usage.Path,
		"total", units.Format(usage.Total),
		"used", units.Format(usage.Used),
		"free", units.Format(usage.Free))

	resolved, needed := job.Constraint.Resolve(usage.Free)
	if !needed {
		if job.Constraint.Mode == expire.EnsureFree {
			logger.Info("Enough free space already", "free", units.Format(usage.Free))
		}
		report.Skipped = true
		report.Finished = time.Now()
		return report, nil
	}
	report.Resolved = resolved

	engine := expire.NewEngine(expire.Options{
		Constraint: resolved,
		Policy:     job.Policy,
		DryRun:     job.DryRun,
		Remover:    remover,
		Logger:     logger,
	})
	report.Stats, err = engine.Run(walker.Walk(job.Dirs, logger))
	report.Finished = time.Now()
	if err != nil {
		logger.Error("Expiration aborted",
			"error", err,
			"freed", units.Format(report.Stats.FreedBytes),
			"files", report.Stats.FreedFiles)
		return report, err
	}
	return report, nil
}
