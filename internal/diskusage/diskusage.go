package diskusage

// Package diskusage reports filesystem capacity and identifies which
// filesystem a path lives on.

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/shirou/gopsutil/v4/disk"
)

// ErrCrossDevice is returned when paths that must share a filesystem do not.
var ErrCrossDevice = errors.New("paths are on different filesystems")

// Usage is the capacity of the filesystem holding a path, in bytes.
// Free is the space available to unprivileged users.
type Usage struct {
	Path   string
	Fstype string
	Total  int64
	Used   int64
	Free   int64
}

// Get returns the usage of the filesystem containing path.
func Get(path string) (Usage, error) {
	st, err := disk.Usage(path)
	if err != nil {
		return Usage{}, fmt.Errorf("disk usage of %s: %w", path, err)
	}
	return Usage{
		Path:   path,
		Fstype: st.Fstype,
		Total:  int64(st.Total),
		Used:   int64(st.Used),
		Free:   int64(st.Free),
	}, nil
}

// SameDevice checks that every path resolves to one filesystem.
func SameDevice(paths []string) error {
	var first, firstPath string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		id, err := DeviceID(abs)
		if err != nil {
			return fmt.Errorf("identify filesystem of %s: %w", p, err)
		}
		if firstPath == "" {
			first, firstPath = id, p
			continue
		}
		if id != first {
			return fmt.Errorf("%w: %s and %s", ErrCrossDevice, firstPath, p)
		}
	}
	return nil
}
