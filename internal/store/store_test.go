package store

import (
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordRun_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	started := time.Unix(1700000000, 123)
	in := Run{
		StartedAt:       started,
		FinishedAt:      started.Add(2 * time.Second),
		Mode:            "keep",
		Bytes:           60,
		Policy:          "lru",
		Dirs:            []string{"/cache/a", "/cache/b"},
		DiscoveredFiles: 3,
		DiscoveredBytes: 120,
		FreedFiles:      2,
		FreedBytes:      60,
	}

	id, err := s.RecordRun(in)
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated run ID")
	}

	runs, err := s.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}

	got := runs[0]
	if got.ID != id {
		t.Errorf("ID = %q, want %q", got.ID, id)
	}
	if !got.StartedAt.Equal(in.StartedAt) || !got.FinishedAt.Equal(in.FinishedAt) {
		t.Errorf("times = %v..%v, want %v..%v", got.StartedAt, got.FinishedAt, in.StartedAt, in.FinishedAt)
	}
	if !slices.Equal(got.Dirs, in.Dirs) {
		t.Errorf("Dirs = %v, want %v", got.Dirs, in.Dirs)
	}
	if got.Mode != "keep" || got.Bytes != 60 || got.Policy != "lru" || got.DryRun {
		t.Errorf("constraint fields mismatch: %+v", got)
	}
	if got.DiscoveredFiles != 3 || got.DiscoveredBytes != 120 || got.FreedFiles != 2 || got.FreedBytes != 60 {
		t.Errorf("stats mismatch: %+v", got)
	}
}

func TestRecentRuns_NewestFirstWithLimit(t *testing.T) {
	s := newTestStore(t)

	base := time.Now()
	for i := 0; i < 5; i++ {
		_, err := s.RecordRun(Run{
			ID:         string(rune('a' + i)),
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
			Mode:       "delete",
			Policy:     "lru",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.RecentRuns(3)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if want := []string{"e", "d", "c"}; !slices.Equal(ids, want) {
		t.Errorf("got %v, want %v", ids, want)
	}
}

func TestTotalFreed_SkipsDryRunsAndFailures(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	runs := []Run{
		{FreedBytes: 100},
		{FreedBytes: 50, DryRun: true},
		{FreedBytes: 10, Error: "permission denied"},
		{FreedBytes: 7},
	}
	for _, r := range runs {
		r.StartedAt, r.FinishedAt, r.Mode, r.Policy = now, now, "delete", "lru"
		if _, err := s.RecordRun(r); err != nil {
			t.Fatal(err)
		}
	}

	total, err := s.TotalFreed()
	if err != nil {
		t.Fatal(err)
	}
	if total != 107 {
		t.Errorf("TotalFreed = %d, want 107", total)
	}
}
