//go:build !unix

package diskusage

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
)

// DeviceID returns the mountpoint of the partition holding path, picking the
// longest matching mountpoint.
func DeviceID(path string) (string, error) {
	parts, err := disk.Partitions(true)
	if err != nil {
		return "", err
	}

	best := ""
	lower := strings.ToLower(path)
	for _, p := range parts {
		mp := strings.ToLower(p.Mountpoint)
		if strings.HasPrefix(lower, mp) && len(mp) > len(best) {
			best = mp
		}
	}
	if best == "" {
		return "", fmt.Errorf("no partition contains %s", path)
	}
	return best, nil
}
