package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestZip_FlatEntries(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a", "movie_part_1.mp4")
	b := filepath.Join(dir, "b", "movie_part_2.mp4")
	for _, p := range []string{a, b} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(filepath.Base(p)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	dst := filepath.Join(dir, "movie_clips.zip")
	if err := Zip(dst, []string{a, b}); err != nil {
		t.Fatalf("zip: %v", err)
	}

	zr, err := zip.OpenReader(dst)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(zr.File))
	}
	for i, want := range []string{"movie_part_1.mp4", "movie_part_2.mp4"} {
		f := zr.File[i]
		if f.Name != want {
			t.Fatalf("entry %d = %q, want %q", i, f.Name, want)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(rc)
		rc.Close()
		if string(body) != want {
			t.Fatalf("entry %s has body %q", want, body)
		}
	}
	if _, err := os.Stat(dst + ".partial"); !os.IsNotExist(err) {
		t.Fatalf("partial file left behind: %v", err)
	}
}

func TestZip_Errors(t *testing.T) {
	dir := t.TempDir()
	if err := Zip(filepath.Join(dir, "x.zip"), nil); err == nil {
		t.Fatalf("expected error for empty file list")
	}
	dst := filepath.Join(dir, "y.zip")
	if err := Zip(dst, []string{filepath.Join(dir, "missing.mp4")}); err == nil {
		t.Fatalf("expected error for missing input")
	}
	if _, err := os.Stat(dst + ".partial"); !os.IsNotExist(err) {
		t.Fatalf("partial file should be removed on error")
	}
}
