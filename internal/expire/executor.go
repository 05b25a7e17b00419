package expire

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"fs-expire/internal/units"
)

// Remover deletes a single file.
type Remover interface {
	Remove(path string) error
}

// RemoverFunc adapts a function to Remover.
type RemoverFunc func(path string) error

func (f RemoverFunc) Remove(path string) error { return f(path) }

// OSRemover removes files from the local filesystem.
var OSRemover Remover = RemoverFunc(os.Remove)

// DeleteError is a removal failure other than the file already being gone.
// It aborts the run.
type DeleteError struct {
	Path string
	Err  error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete %s: %v", e.Path, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// executor removes selected records and keeps the freed counters. Dry runs
// update the counters exactly like real runs.
type executor struct {
	dryRun  bool
	remover Remover
	logger  *slog.Logger
	stats   *Stats
}

func (x *executor) delete(r record) error {
	x.logger.Debug("Deleting file",
		"path", r.path,
		"mtime", r.mtime.Format(time.DateTime),
		"size", units.Format(r.size))

	if !x.dryRun {
		if err := x.remover.Remove(r.path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				x.logger.Warn("File vanished before deletion", "path", r.path)
				x.stats.VanishedFiles++
				x.stats.VanishedBytes += r.size
				return nil
			}
			return &DeleteError{Path: r.path, Err: err}
		}
	}

	x.stats.FreedFiles++
	x.stats.FreedBytes += r.size
	return nil
}
