package journal

// Package journal rotates numbered journal segments (name.jnl.1, name.jnl.2.gz, ...):
// the newest are left alone, the next ones are kept compressed and the rest deleted.

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Options control a rotation pass.
type Options struct {
	// Prefix is the journal path without the ".jnl" suffix. Relative
	// prefixes are resolved against Root.
	Prefix string
	Root   string
	// Skip is how many of the newest journals are left untouched, all of
	// them when negative.
	Skip int
	// Keep is how many journals, counting the skipped ones, stay on disk.
	// The kept ones beyond Skip are compressed. Negative keeps all.
	Keep   int
	DryRun bool
	Logger *slog.Logger
}

// Result counts what a rotation pass did.
type Result struct {
	Skipped    int
	Kept       int
	Compressed int
	Deleted    int
}

// Remaining is the number of journals still on disk after the pass.
func (r Result) Remaining() int {
	return r.Skipped + r.Kept
}

// List returns the journals for prefix, newest first.
func List(prefix string) ([]string, error) {
	matches, err := filepath.Glob(prefix + ".jnl*")
	if err != nil {
		return nil, fmt.Errorf("list journals: %w", err)
	}

	journals := make([]string, 0, len(matches))
	for _, m := range matches {
		if resolved, err := filepath.EvalSymlinks(m); err == nil {
			m = resolved
		}
		journals = append(journals, m)
	}

	// Higher ordinals are newer: jnl.10000 < jnl.3000.gz < jnl.900.gz.
	slices.SortStableFunc(journals, func(a, b string) int {
		return slices.Compare(ordinalKey(a), ordinalKey(b))
	})
	return journals, nil
}

func ordinalKey(path string) []int64 {
	parts := strings.Split(path, ".")
	key := make([]int64, len(parts))
	for i, p := range parts {
		if n, err := strconv.ParseInt(p, 10, 64); err == nil && n >= 0 {
			key[i] = -n
		}
	}
	return key
}

// Rotate applies opts to the journals matching the prefix.
func Rotate(opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	prefix := opts.Prefix
	if prefix == "" {
		return Result{}, fmt.Errorf("journal prefix is required")
	}
	if !filepath.IsAbs(prefix) && opts.Root != "" {
		prefix = filepath.Join(opts.Root, prefix)
	}

	journals, err := List(prefix)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for n, jnl := range journals {
		switch {
		case opts.Skip < 0 || n < opts.Skip:
			res.Skipped++
		case opts.Keep < 0 || n < opts.Keep:
			res.Kept++
			if strings.HasSuffix(jnl, ".gz") {
				continue
			}
			logger.Debug("Compressing journal", "path", jnl)
			if !opts.DryRun {
				if _, err := CompressFile(jnl); err != nil {
					return res, err
				}
			}
			res.Compressed++
		default:
			logger.Debug("Deleting journal", "path", jnl)
			if !opts.DryRun {
				if err := os.Remove(jnl); err != nil {
					return res, fmt.Errorf("delete journal: %w", err)
				}
			}
			res.Deleted++
		}
	}

	logger.Info("Journal maintenance done",
		"prefix", prefix,
		"compressed", res.Compressed,
		"uncompressed", res.Skipped,
		"deleted", res.Deleted,
		"remaining", res.Remaining())
	return res, nil
}

// CompressFile gzips src into src+".gz", carries over its permissions,
// ownership and modification time, and removes src once the copy is
// complete. It returns the compressed file's path.
func CompressFile(src string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", err
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dst := src + ".gz"
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return "", err
	}

	zw := gzip.NewWriter(out)
	zw.Name = filepath.Base(src)
	zw.ModTime = info.ModTime()

	if _, err := io.Copy(zw, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("compress %s: %w", src, err)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("compress %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", err
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return "", err
	}
	chown(dst, info)
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return "", err
	}

	in.Close()
	if err := os.Remove(src); err != nil {
		return "", err
	}
	return dst, nil
}
