package walker

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
)

func writeFile(t *testing.T, path string, size int64) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := f.Truncate(size); err != nil {
		t.Fatal(err)
	}
}

func TestWalk_MultipleRoots(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()

	writeFile(t, filepath.Join(rootA, "a.bin"), 10)
	writeFile(t, filepath.Join(rootA, "sub", "deep", "b.bin"), 20)
	writeFile(t, filepath.Join(rootB, "c.bin"), 30)
	if err := os.MkdirAll(filepath.Join(rootB, "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	var paths []string
	var total int64
	for f := range Walk([]string{rootA, rootB}, nil) {
		paths = append(paths, f.Path)
		total += f.Size
		if f.ModTime.IsZero() {
			t.Errorf("%s: zero modification time", f.Path)
		}
	}

	want := []string{
		filepath.Join(rootA, "a.bin"),
		filepath.Join(rootA, "sub", "deep", "b.bin"),
		filepath.Join(rootB, "c.bin"),
	}
	slices.Sort(paths)
	slices.Sort(want)
	if !slices.Equal(paths, want) {
		t.Errorf("got %v, want %v", paths, want)
	}
	if total != 60 {
		t.Errorf("expected 60 bytes, got %d", total)
	}
}

func TestWalk_MissingRootIsSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.bin"), 1)

	count := 0
	for range Walk([]string{filepath.Join(root, "missing"), root}, nil) {
		count++
	}
	if count != 1 {
		t.Errorf("expected 1 file, got %d", count)
	}
}

func TestWalk_UnreadableSubtreeIsSkipped(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ok.bin"), 1)
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "hidden.bin"), 1)
	if err := os.Chmod(locked, 0); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(locked, 0755)

	var got []string
	for f := range Walk([]string{root}, nil) {
		got = append(got, filepath.Base(f.Path))
	}
	if !slices.Equal(got, []string{"ok.bin"}) {
		t.Errorf("expected only ok.bin, got %v", got)
	}
}

func TestWalk_EarlyStop(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d"} {
		writeFile(t, filepath.Join(root, name), 1)
	}

	count := 0
	for range Walk([]string{root, root}, nil) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("expected to stop after 2 files, got %d", count)
	}
}
