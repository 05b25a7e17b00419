package pruner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fs-expire/internal/diskusage"
	"fs-expire/internal/expire"
	"fs-expire/internal/journal"
	"fs-expire/internal/policy"
	"fs-expire/internal/store"
)

// createFiles writes one file per size, each an hour newer than the last,
// and returns their paths oldest first.
func createFiles(t *testing.T, dir string, sizes ...int) []string {
	t.Helper()
	base := time.Now().Add(-time.Duration(len(sizes)+1) * time.Hour)
	var paths []string
	for i, size := range sizes {
		path := filepath.Join(dir, fmt.Sprintf("f%d.dat", i+1))
		if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
			t.Fatal(err)
		}
		mtime := base.Add(time.Duration(i) * time.Hour)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}
	return paths
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestRunJob_KeepEvictsOldest(t *testing.T) {
	dir := t.TempDir()
	paths := createFiles(t, dir, 10, 20, 30, 40)

	report, err := RunJob(Job{
		Dirs:       []string{dir},
		Constraint: expire.KeepAtMostBytes(50),
		Policy:     policy.OldestFirst,
	}, nil)
	if err != nil {
		t.Fatalf("RunJob failed: %v", err)
	}

	if report.Stats.DiscoveredFiles != 4 || report.Stats.DiscoveredBytes != 100 {
		t.Errorf("discovered %d files / %d bytes", report.Stats.DiscoveredFiles, report.Stats.DiscoveredBytes)
	}
	if report.Stats.FreedBytes < 50 {
		t.Errorf("freed %d bytes, expected at least 50", report.Stats.FreedBytes)
	}
	if !exists(paths[3]) {
		t.Error("newest file should survive")
	}
	if exists(paths[1]) || exists(paths[2]) {
		t.Error("f2 and f3 should always be evicted")
	}
	if report.Finished.Before(report.Started) {
		t.Error("Finished before Started")
	}
}

func TestRunJob_MultipleDirsShareOneBudget(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	createFiles(t, a, 10, 10)
	createFiles(t, b, 10, 10)

	report, err := RunJob(Job{
		Dirs:       []string{a, b},
		Constraint: expire.DeleteBytes(20),
		Policy:     policy.OldestFirst,
		DryRun:     true,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Stats.DiscoveredFiles != 4 {
		t.Errorf("expected 4 files across both dirs, got %d", report.Stats.DiscoveredFiles)
	}
	if report.Stats.FreedBytes != 20 {
		t.Errorf("expected 20 bytes freed, got %d", report.Stats.FreedBytes)
	}
	entries, _ := os.ReadDir(a)
	if len(entries) != 2 {
		t.Error("dry run deleted files")
	}
}

func TestRunJob_EnsureFreeAlreadySatisfied(t *testing.T) {
	dir := t.TempDir()
	paths := createFiles(t, dir, 10)

	report, err := RunJob(Job{
		Dirs:       []string{dir},
		Constraint: expire.EnsureFreeBytes(1),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Skipped {
		t.Error("expected the job to be skipped")
	}
	if report.Stats != (expire.Stats{}) {
		t.Errorf("expected empty stats, got %+v", report.Stats)
	}
	if !exists(paths[0]) {
		t.Error("file deleted although enough space was free")
	}
}

func TestRunJob_EnsureFreeTranslatesToDelete(t *testing.T) {
	dir := t.TempDir()
	createFiles(t, dir, 10, 10, 10)

	usage, err := diskusage.Get(dir)
	if err != nil {
		t.Skipf("disk usage unavailable: %v", err)
	}

	// Asks for far more than the files hold, so the deleted amount is
	// everything regardless of free space drifting during the test.
	report, err := RunJob(Job{
		Dirs:       []string{dir},
		Constraint: expire.EnsureFreeBytes(usage.Free + 1<<40),
		DryRun:     true,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Resolved.Mode != expire.Delete {
		t.Errorf("expected a delete constraint, got %v", report.Resolved)
	}
	if report.Stats.FreedBytes != 30 {
		t.Errorf("expected all 30 bytes freed, got %d", report.Stats.FreedBytes)
	}
}

func TestRunJob_Validation(t *testing.T) {
	dir := t.TempDir()
	file := createFiles(t, dir, 1)[0]

	tests := []struct {
		name string
		job  Job
	}{
		{"no dirs", Job{Constraint: expire.DeleteBytes(1)}},
		{"missing dir", Job{Dirs: []string{filepath.Join(dir, "nope")}, Constraint: expire.DeleteBytes(1)}},
		{"file not dir", Job{Dirs: []string{file}, Constraint: expire.DeleteBytes(1)}},
		{"negative", Job{Dirs: []string{dir}, Constraint: expire.KeepAtMostBytes(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RunJob(tt.job, nil)
			if !errors.Is(err, ErrInvalidJob) {
				t.Errorf("expected ErrInvalidJob, got %v", err)
			}
		})
	}
	if !exists(file) {
		t.Error("validation failure mutated the filesystem")
	}
}

func TestRunJob_DeleteErrorKeepsPartialStats(t *testing.T) {
	dir := t.TempDir()
	paths := createFiles(t, dir, 10, 10, 10)

	failing := expire.RemoverFunc(func(path string) error {
		if path == paths[1] {
			return os.ErrPermission
		}
		return os.Remove(path)
	})
	report, err := runJob(Job{
		Dirs:       []string{dir},
		Constraint: expire.KeepAtMostBytes(0),
	}, failing, nil)

	var delErr *expire.DeleteError
	if !errors.As(err, &delErr) || delErr.Path != paths[1] {
		t.Fatalf("expected DeleteError for %s, got %v", paths[1], err)
	}
	if report.Stats.DiscoveredFiles == 0 {
		t.Error("expected partial stats to be returned")
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPruner_PruneRecordsRuns(t *testing.T) {
	dir := t.TempDir()
	createFiles(t, dir, 10, 20, 30, 40)
	s := newTestStore(t)

	p := NewPruner(Job{
		Dirs:       []string{dir},
		Constraint: expire.DeleteBytes(30),
		Policy:     policy.OldestFirst,
	}, time.Hour, s, nil)

	if _, err := p.Prune(); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}

	// A second run against a directory that no longer exists is recorded as failed.
	os.RemoveAll(dir)
	if _, err := p.Prune(); !errors.Is(err, ErrInvalidJob) {
		t.Errorf("expected ErrInvalidJob, got %v", err)
	}

	runs, err := s.RecentRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 recorded runs, got %d", len(runs))
	}

	var ok, failed int
	for _, r := range runs {
		if r.Error == "" {
			ok++
			if r.FreedBytes != 30 || r.Mode != "delete" || r.Policy != "lru" {
				t.Errorf("unexpected successful run: %+v", r)
			}
		} else {
			failed++
		}
	}
	if ok != 1 || failed != 1 {
		t.Errorf("expected one success and one failure, got %d / %d", ok, failed)
	}
}

func TestPruner_RotatesJournalsAfterRun(t *testing.T) {
	dir := t.TempDir()
	createFiles(t, dir, 10)
	// List reports resolved paths.
	jdir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if err := os.WriteFile(filepath.Join(jdir, fmt.Sprintf("p4.jnl.%d", i)), []byte("journal"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	p := NewPruner(Job{Dirs: []string{dir}, Constraint: expire.KeepAtMostBytes(100)}, time.Hour, nil, nil)
	p.Journal = &journal.Options{Prefix: "p4", Root: jdir, Skip: 1, Keep: 2}

	if _, err := p.Prune(); err != nil {
		t.Fatal(err)
	}

	left, err := journal.List(filepath.Join(jdir, "p4"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(jdir, "p4.jnl.3"), filepath.Join(jdir, "p4.jnl.2.gz")}
	if len(left) != 2 || left[0] != want[0] || left[1] != want[1] {
		t.Errorf("journals after rotation = %v, want %v", left, want)
	}
}

func TestPruner_TriggerRunsEarly(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t)

	p := NewPruner(Job{Dirs: []string{dir}, Constraint: expire.KeepAtMostBytes(0)}, time.Hour, s, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// The initial run happens right away; the trigger adds a second one
	// long before the hourly tick.
	waitForRuns(t, s, 1)
	createFiles(t, dir, 5)
	p.Trigger()
	waitForRuns(t, s, 2)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("triggered run left %d files", len(entries))
	}
}

func waitForRuns(t *testing.T, s *store.Store, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		runs, err := s.RecentRuns(10)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) >= n {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d runs", n)
}
