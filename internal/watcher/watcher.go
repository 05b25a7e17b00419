package watcher

// Package watcher provides a recursive file system watcher.
// It uses fsnotify to listen for files being created or written below a set
// of roots and reports a burst of activity as a single debounced callback.
// New subdirectories are added to the watch list as they appear.

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher handles the file system events using fsnotify.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	onChange  func(path string)
	logger    *slog.Logger
}

// NewWatcher creates a recursive watcher on every root. Events are not
// delivered until Run is called.
//
// onChange is called once activity has been quiet for debounce, with the
// last path that changed.
func NewWatcher(roots []string, debounce time.Duration, onChange func(path string), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		onChange:  onChange,
		logger:    logger,
	}
	for _, root := range roots {
		if err := w.AddRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timer   *time.Timer
		pending <-chan time.Time
		last    string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			if event.Has(fsnotify.Create) {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if err := w.AddRecursive(event.Name); err != nil {
						w.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			last = event.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			w.logger.Debug("Change detected", "path", last)
			w.onChange(last)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}

// AddRecursive adds the given path and all its sub-directories to the watcher.
func (w *Watcher) AddRecursive(path string) error {
	return filepath.WalkDir(path, func(newPath string, d fs.DirEntry, err error) error {
		if err != nil {
			if newPath == path {
				return err
			}
			w.logger.Debug("Skipping unreadable directory", "path", newPath, "error", err)
			return fs.SkipDir
		}
		if d.IsDir() {
			w.logger.Debug("Watching", "path", newPath)
			return w.fsWatcher.Add(newPath)
		}
		return nil
	})
}

// Close shuts down the file system watcher.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}
