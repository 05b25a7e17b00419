package walker

// Package walker streams the regular files of one or more directory trees.
// Unreadable subtrees and entries that vanish mid-scan are skipped so a scan
// of a live cache never fails halfway through.

import (
	"errors"
	"io/fs"
	"iter"
	"log/slog"
	"path/filepath"
	"time"
)

// File is the metadata the eviction engine needs about one discovered file.
type File struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Walk returns a lazy sequence over every non-directory entry below roots,
// in traversal order. Roots are scanned one after the other as a single
// stream. Symlinks are reported as themselves and never followed.
//
// The sequence can be ranged over more than once; each range rescans.
func Walk(roots []string, logger *slog.Logger) iter.Seq[File] {
	return func(yield func(File) bool) {
		for _, root := range roots {
			if !walkRoot(root, logger, yield) {
				return
			}
		}
	}
}

func walkRoot(root string, logger *slog.Logger, yield func(File) bool) bool {
	stopped := false
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			skip(logger, path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// Removed between readdir and lstat.
			skip(logger, path, err)
			return nil
		}

		if !yield(File{Path: path, Size: info.Size(), ModTime: info.ModTime()}) {
			stopped = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipAll) {
		skip(logger, root, err)
	}
	return !stopped
}

func skip(logger *slog.Logger, path string, err error) {
	if logger != nil {
		logger.Debug("Skipping unreadable entry", "path", path, "error", err)
	}
}
