package pruner

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fs-expire/internal/journal"
	"fs-expire/internal/store"
)

// Pruner runs a Job on a fixed interval and whenever it is triggered.
// At most one run is in progress at a time.
type Pruner struct {
	job      Job
	interval time.Duration
	store    *store.Store
	logger   *slog.Logger

	// Journal, when set, is rotated after every successful run.
	Journal *journal.Options

	trigger chan struct{}
	mu      sync.Mutex
}

// NewPruner creates a pruner. s may be nil to skip recording runs.
func NewPruner(job Job, interval time.Duration, s *store.Store, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pruner{
		job:      job,
		interval: interval,
		store:    s,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Run prunes once immediately, then on every tick and trigger until ctx is
// done. Failed runs are logged and recorded, they do not stop the loop.
func (p *Pruner) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Prune()
	for {
		select {
		case <-ticker.C:
			p.Prune()
		case <-p.trigger:
			p.Prune()
		case <-ctx.Done():
			return nil
		}
	}
}

// Trigger asks for an early run. Requests made while one is already
// pending collapse into it.
func (p *Pruner) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Prune runs the job once, records it and rotates journals.
func (p *Pruner) Prune() (Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	report, err := RunJob(p.job, p.logger)
	if err != nil {
		p.logger.Error("Scheduled expiration failed", "error", err)
	}
	p.record(report, err)

	if err == nil && p.Journal != nil {
		opts := *p.Journal
		opts.DryRun = opts.DryRun || p.job.DryRun
		opts.Logger = p.logger
		if _, jerr := journal.Rotate(opts); jerr != nil {
			p.logger.Error("Journal rotation failed", "prefix", opts.Prefix, "error", jerr)
		}
	}
	return report, err
}

func (p *Pruner) record(report Report, runErr error) {
	if p.store == nil {
		return
	}

	run := store.Run{
		StartedAt:       report.Started,
		FinishedAt:      report.Finished,
		Mode:            report.Job.Constraint.Mode.String(),
		Bytes:           report.Job.Constraint.Bytes,
		Policy:          report.Job.Policy.String(),
		DryRun:          report.Job.DryRun,
		Dirs:            report.Job.Dirs,
		DiscoveredFiles: report.Stats.DiscoveredFiles,
		DiscoveredBytes: report.Stats.DiscoveredBytes,
		FreedFiles:      report.Stats.FreedFiles,
		FreedBytes:      report.Stats.FreedBytes,
		VanishedFiles:   report.Stats.VanishedFiles,
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if runErr != nil {
		run.Error = strings.TrimSpace(runErr.Error())
	}

	if _, err := p.store.RecordRun(run); err != nil {
		p.logger.Error("Failed to record run", "error", err)
	}
}
