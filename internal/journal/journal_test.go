package journal

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

func setupJournals(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("journal "+name), 0640); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

func TestList_NumericOrder(t *testing.T) {
	dir := setupJournals(t, "p4.jnl.900.gz", "p4.jnl.3000.gz", "p4.jnl.10000", "p4.jnl.12", "other.jnl.1")

	got, err := List(filepath.Join(dir, "p4"))
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"p4.jnl.10000", "p4.jnl.3000.gz", "p4.jnl.900.gz", "p4.jnl.12"}
	if !slices.Equal(baseNames(got), want) {
		t.Errorf("got %v, want %v", baseNames(got), want)
	}
}

func TestRotate(t *testing.T) {
	dir := setupJournals(t, "p4.jnl.5", "p4.jnl.4", "p4.jnl.3", "p4.jnl.2.gz", "p4.jnl.1")

	res, err := Rotate(Options{Prefix: "p4", Root: dir, Skip: 1, Keep: 3})
	if err != nil {
		t.Fatal(err)
	}

	want := Result{Skipped: 1, Kept: 2, Compressed: 2, Deleted: 2}
	if res != want {
		t.Errorf("got %+v, want %+v", res, want)
	}
	if res.Remaining() != 3 {
		t.Errorf("expected 3 journals remaining, got %d", res.Remaining())
	}

	left, _ := List(filepath.Join(dir, "p4"))
	wantLeft := []string{"p4.jnl.5", "p4.jnl.4.gz", "p4.jnl.3.gz"}
	if !slices.Equal(baseNames(left), wantLeft) {
		t.Errorf("remaining journals %v, want %v", baseNames(left), wantLeft)
	}
}

func TestRotate_DryRun(t *testing.T) {
	dir := setupJournals(t, "p4.jnl.3", "p4.jnl.2", "p4.jnl.1")

	res, err := Rotate(Options{Prefix: filepath.Join(dir, "p4"), Skip: 1, Keep: 2, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Compressed != 1 || res.Deleted != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 3 {
		t.Errorf("dry run changed the directory: %d entries", len(entries))
	}
}

func TestRotate_NegativeSkipAndKeep(t *testing.T) {
	dir := setupJournals(t, "p4.jnl.2", "p4.jnl.1")

	res, err := Rotate(Options{Prefix: "p4", Root: dir, Skip: -1, Keep: -1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 2 || res.Compressed != 0 || res.Deleted != 0 {
		t.Errorf("negative skip should leave everything alone, got %+v", res)
	}

	res, err = Rotate(Options{Prefix: "p4", Root: dir, Skip: 0, Keep: -1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Compressed != 2 || res.Deleted != 0 {
		t.Errorf("negative keep should compress everything, got %+v", res)
	}
}

func TestCompressFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "p4.jnl.7")
	if err := os.WriteFile(src, []byte("some data"), 0600); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	dst, err := CompressFile(src)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be removed after compression")
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("mtime not preserved: %v", info.ModTime())
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "some data" {
		t.Errorf("content mismatch: %q", data)
	}
}
