package expire

// Package expire selects and deletes cache files under a space constraint
// while streaming the directory scan.
//
// The working set is a min-max heap keyed by the eviction policy. Its total
// size stays bounded by the constraint's byte budget, so memory grows with
// the budget and not with the number of files in the tree.

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"fs-expire/internal/minmax"
	"fs-expire/internal/policy"
	"fs-expire/internal/units"
	"fs-expire/internal/walker"
)

// ErrUnresolved is returned when an EnsureFree constraint reaches the engine
// without having been resolved against the filesystem's free space.
var ErrUnresolved = errors.New("ensure-free constraint must be resolved before running")

// Stats are the counters of one run. They only ever increase.
type Stats struct {
	DiscoveredFiles int64
	DiscoveredBytes int64
	FreedFiles      int64
	FreedBytes      int64
	// Files picked for deletion that someone else removed first.
	VanishedFiles int64
	VanishedBytes int64
}

// Options configure an Engine.
type Options struct {
	Constraint Constraint
	Policy     policy.Policy
	DryRun     bool
	Remover    Remover      // defaults to OSRemover
	Logger     *slog.Logger // defaults to discarding
}

type record struct {
	key   policy.Key
	size  int64
	path  string
	mtime time.Time
}

// Engine runs the streaming selection. It is not safe for concurrent use.
type Engine struct {
	constraint Constraint
	order      policy.Ordering
	logger     *slog.Logger
	exec       *executor

	heap    *minmax.Heap[record]
	tracked int64
	stats   Stats
}

// NewEngine creates an engine for one constraint and policy.
func NewEngine(opts Options) *Engine {
	if opts.Remover == nil {
		opts.Remover = OSRemover
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	e := &Engine{
		constraint: opts.Constraint,
		order:      opts.Policy.Ordering(),
		logger:     opts.Logger,
	}
	e.exec = &executor{
		dryRun:  opts.DryRun,
		remover: opts.Remover,
		logger:  opts.Logger,
		stats:   &e.stats,
	}
	return e
}

// Tracked returns the total size of the files currently in the working set.
func (e *Engine) Tracked() int64 {
	return e.tracked
}

// Run consumes files once and deletes according to the constraint.
//
// Keep deletes during the scan whenever the tracked size exceeds the cap.
// Delete only narrows the working set during the scan, dropping the files
// least likely to be needed, and deletes in a final drain. Delete stops
// short of its target when the working set runs out first; that is reported
// through Stats, not as an error. A removal failure other than the file
// already being gone stops the run and is returned with the stats so far.
func (e *Engine) Run(files iter.Seq[walker.File]) (Stats, error) {
	c := e.constraint
	switch {
	case c.Bytes < 0:
		return Stats{}, fmt.Errorf("negative space target: %d bytes", c.Bytes)
	case c.Mode == EnsureFree:
		return Stats{}, ErrUnresolved
	case c.Mode == Delete && c.Bytes == 0:
		return Stats{}, nil
	}

	e.heap = minmax.New(func(a, b record) bool { return e.order.Less(a.key, b.key) })
	e.tracked = 0
	e.stats = Stats{}

	for f := range files {
		e.track(f)
		if c.Mode == Keep {
			if err := e.enforceCap(c.Bytes); err != nil {
				return e.stats, err
			}
		} else {
			e.trim(c.Bytes)
		}
	}

	e.logger.Info("Found data",
		"size", units.Format(e.stats.DiscoveredBytes),
		"files", e.stats.DiscoveredFiles,
		"tracked", e.heap.Len())

	if c.Mode == Delete {
		if err := e.drain(c.Bytes); err != nil {
			return e.stats, err
		}
	}

	e.logger.Info("Freed data",
		"size", units.Format(e.stats.FreedBytes),
		"files", e.stats.FreedFiles)
	if e.stats.VanishedFiles > 0 {
		e.logger.Warn("Some selected files were already gone",
			"size", units.Format(e.stats.VanishedBytes),
			"files", e.stats.VanishedFiles)
	}
	return e.stats, nil
}

func (e *Engine) track(f walker.File) {
	e.heap.Push(record{
		key:   e.order.Key(f.ModTime),
		size:  f.Size,
		path:  f.Path,
		mtime: f.ModTime,
	})
	e.tracked += f.Size
	e.stats.DiscoveredFiles++
	e.stats.DiscoveredBytes += f.Size
}

// enforceCap deletes the lowest-ranked files until the cap holds again.
func (e *Engine) enforceCap(limit int64) error {
	for e.tracked > limit {
		r, err := e.heap.PopMin()
		if err != nil {
			return err
		}
		e.tracked -= r.size
		if err := e.exec.delete(r); err != nil {
			return err
		}
	}
	return nil
}

// trim stops tracking the highest-ranked files, leaving them on disk.
func (e *Engine) trim(target int64) {
	for e.tracked > target {
		r, err := e.heap.PopMax()
		if err != nil {
			return
		}
		e.tracked -= r.size
	}
}

// drain deletes from the low end until target bytes were processed or the
// working set is empty. Vanished files count as processed.
func (e *Engine) drain(target int64) error {
	for e.stats.FreedBytes+e.stats.VanishedBytes < target && e.heap.Len() > 0 {
		r, err := e.heap.PopMin()
		if err != nil {
			return err
		}
		e.tracked -= r.size
		if err := e.exec.delete(r); err != nil {
			return err
		}
	}
	return nil
}
