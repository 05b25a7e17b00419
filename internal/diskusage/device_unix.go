//go:build unix

package diskusage

import (
	"strconv"

	"golang.org/x/sys/unix"
)

// DeviceID returns an identifier of the filesystem holding path.
func DeviceID(path string) (string, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return "", err
	}
	return strconv.FormatUint(uint64(st.Dev), 10), nil
}
