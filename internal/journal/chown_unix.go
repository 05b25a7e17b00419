//go:build unix

package journal

import (
	"os"
	"syscall"
)

// chown copies the owner of info onto path. Failure is ignored: only a
// privileged process can give files away.
func chown(path string, info os.FileInfo) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		_ = os.Lchown(path, int(st.Uid), int(st.Gid))
	}
}
