package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fs-expire/internal/journal"
)

// ensure we implement io.WriteCloser
var _ io.WriteCloser = (*LogRotator)(nil)

const backupTimeFormat = "2006-01-02T15-04-05.000"

// LogRotator writes to a log file and rotates it when it reaches a certain size.
// Rotated backups are optionally gzipped and pruned by count and age.
type LogRotator struct {
	Filename   string
	MaxBytes   int64 // defaults to 10MB
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	size int64
	file *os.File
	mu   sync.Mutex
	post sync.WaitGroup
}

// Write writes data to the log file, rotating if necessary.
func (l *LogRotator) Write(p []byte) (n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	writeLen := int64(len(p))
	if writeLen > l.max() {
		return 0, fmt.Errorf("write length %d exceeds max file size %d", writeLen, l.max())
	}

	if l.file == nil {
		if err = l.openExistingOrNew(writeLen); err != nil {
			return 0, err
		}
	}

	if l.size+writeLen > l.max() {
		if err := l.rotate(); err != nil {
			return 0, err
		}
	}

	n, err = l.file.Write(p)
	l.size += int64(n)
	return n, err
}

// Close closes the file and waits for pending compression and cleanup.
func (l *LogRotator) Close() error {
	l.mu.Lock()
	err := l.close()
	l.mu.Unlock()

	l.post.Wait()
	return err
}

func (l *LogRotator) close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *LogRotator) openExistingOrNew(writeLen int64) error {
	info, err := os.Stat(l.Filename)
	if os.IsNotExist(err) {
		return l.openNew()
	}
	if err != nil {
		return fmt.Errorf("error getting log file info: %w", err)
	}

	if info.Size()+writeLen > l.max() {
		return l.rotate()
	}

	file, err := os.OpenFile(l.Filename, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return l.openNew()
	}

	l.file = file
	l.size = info.Size()
	return nil
}

func (l *LogRotator) openNew() error {
	if err := os.MkdirAll(filepath.Dir(l.Filename), 0755); err != nil {
		return fmt.Errorf("can't make directories for new logfile: %w", err)
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(l.Filename); err == nil {
		mode = info.Mode()
	}

	f, err := os.OpenFile(l.Filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("can't open new logfile: %w", err)
	}
	l.file = f
	l.size = 0
	return nil
}

// rotate closes the current file, renames it, and opens a new one.
func (l *LogRotator) rotate() error {
	if err := l.close(); err != nil {
		return err
	}

	if _, err := os.Stat(l.Filename); err == nil {
		backup := l.backupName(time.Now())
		if err := os.Rename(l.Filename, backup); err != nil {
			return fmt.Errorf("failed to rename log file: %w", err)
		}

		l.post.Add(1)
		go func() {
			defer l.post.Done()
			l.postRotate(backup)
		}()
	}

	return l.openNew()
}

func (l *LogRotator) prefixAndExt() (string, string) {
	base := filepath.Base(l.Filename)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)], ext
}

func (l *LogRotator) backupName(t time.Time) string {
	prefix, ext := l.prefixAndExt()
	return filepath.Join(filepath.Dir(l.Filename), fmt.Sprintf("%s-%s%s", prefix, t.Format(backupTimeFormat), ext))
}

func (l *LogRotator) max() int64 {
	if l.MaxBytes <= 0 {
		return 10 * 1024 * 1024
	}
	return l.MaxBytes
}

// postRotate compresses the fresh backup and prunes old ones. Errors are
// dropped: there is nowhere left to log them.
func (l *LogRotator) postRotate(backup string) {
	if l.Compress {
		_, _ = journal.CompressFile(backup)
	}
	l.cleanup()
}

func (l *LogRotator) cleanup() {
	if l.MaxBackups == 0 && l.MaxAgeDays == 0 {
		return
	}

	files, err := l.oldLogFiles()
	if err != nil {
		return
	}

	if l.MaxAgeDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -l.MaxAgeDays)
		var remaining []logInfo
		for _, f := range files {
			if f.timestamp.Before(cutoff) {
				os.Remove(f.path)
			} else {
				remaining = append(remaining, f)
			}
		}
		files = remaining
	}

	// files are sorted oldest first; keep the newest MaxBackups.
	if l.MaxBackups > 0 && len(files) > l.MaxBackups {
		for _, f := range files[:len(files)-l.MaxBackups] {
			os.Remove(f.path)
		}
	}
}

type logInfo struct {
	timestamp time.Time
	path      string
}

// oldLogFiles lists backups named prefix-<timestamp><ext>[.gz], oldest first.
// The live file has no "-<timestamp>" part and is never listed.
func (l *LogRotator) oldLogFiles() ([]logInfo, error) {
	dir := filepath.Dir(l.Filename)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	prefix, ext := l.prefixAndExt()
	var backups []logInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix+"-") {
			continue
		}

		ts := strings.TrimSuffix(name[len(prefix)+1:], ".gz")
		if !strings.HasSuffix(ts, ext) {
			continue
		}
		ts = strings.TrimSuffix(ts, ext)

		t, err := time.Parse(backupTimeFormat, ts)
		if err == nil {
			backups = append(backups, logInfo{timestamp: t, path: filepath.Join(dir, name)})
		}
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].timestamp.Before(backups[j].timestamp)
	})
	return backups, nil
}
