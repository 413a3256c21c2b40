package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newWS(t *testing.T) *Workspace {
	t.Helper()
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestNewJob_UniqueDirs(t *testing.T) {
	w := newWS(t)
	a, dirA, err := w.NewJob()
	if err != nil {
		t.Fatal(err)
	}
	b, dirB, err := w.NewJob()
	if err != nil {
		t.Fatal(err)
	}
	if a == b || dirA == dirB {
		t.Fatalf("job dirs collide: %s %s", dirA, dirB)
	}
	if got, err := w.JobDir(a); err != nil || got != dirA {
		t.Fatalf("JobDir(%s) = %q, %v", a, got, err)
	}
}

func TestFile_RejectsTraversal(t *testing.T) {
	w := newWS(t)
	id, dir, err := w.NewJob()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "movie_trimmed.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if p, err := w.File(id, "movie_trimmed.mp4"); err != nil || filepath.Dir(p) != dir {
		t.Fatalf("expected file in job dir, got %q %v", p, err)
	}
	for _, name := range []string{"", "..", "../reelcut.db", "a/b", `..\x`} {
		if _, err := w.File(id, name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("File(%q) = %v, want ErrInvalidName", name, err)
		}
	}
	if _, err := w.File(id, "missing.mp4"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if _, err := w.File("../../etc", "passwd"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestSaveMedia(t *testing.T) {
	w := newWS(t)
	id, path, err := w.SaveMedia("../My Show (S01).MKV", strings.NewReader("data"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "my-show-s01.mkv" {
		t.Fatalf("unexpected stored name %q", path)
	}
	got, err := w.Media(id)
	if err != nil || got != path {
		t.Fatalf("Media(%s) = %q, %v", id, got, err)
	}
	if _, _, err := w.SaveMedia("noext", strings.NewReader("")); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if err := w.RemoveMedia(id); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Media(id); !errors.Is(err, ErrNotExist) {
		t.Fatalf("removed media still resolvable: %v", err)
	}
}

func TestMediaID(t *testing.T) {
	root := t.TempDir()
	w, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	id, path, err := w.SaveMedia("Clip.MP4", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := w.MediaID(path); !ok || got != id {
		t.Fatalf("MediaID(%q) = %q, %v; want %q", path, got, ok, id)
	}
	for _, p := range []string{
		"",
		filepath.Join(root, "media"),
		filepath.Join(root, "media", "not-a-uuid", "x.mp4"),
		filepath.Join(root, "jobs", id, "x.mp4"),
		filepath.Join(t.TempDir(), "media", id, "x.mp4"),
	} {
		if got, ok := w.MediaID(p); ok {
			t.Fatalf("MediaID(%q) = %q, want no match", p, got)
		}
	}
}

func TestStale(t *testing.T) {
	w := newWS(t)
	oldID, oldDir, _ := w.NewJob()
	newID, _, _ := w.NewJob()
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldDir, past, past); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(w.Root(), "jobs", "not-a-uuid"), 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := w.StaleJobs(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != oldID {
		t.Fatalf("expected only %s, got %v (fresh %s)", oldID, got, newID)
	}
}

func TestRunDir(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 30, 45, 1234, time.UTC)
	got := RunDir("out", "/tmp/My Cool.Video.mp4", now)
	base := filepath.Base(got)
	if filepath.Dir(got) != "out" {
		t.Fatalf("unexpected parent dir: %s", got)
	}
	if !strings.HasPrefix(base, "my-cool-video-20260212-103045Z-") {
		t.Fatalf("unexpected run dir format: %s", base)
	}
	if len(base) != len("my-cool-video-20260212-103045Z-")+6 {
		t.Fatalf("unexpected run dir suffix length: %s", base)
	}
}

func TestNormalizePathSegment(t *testing.T) {
	tests := map[string]string{
		"  My Cool.Video  ": "my-cool-video",
		"___":               "",
		"abc123":            "abc123",
		"Name (v2)!":        "name-v2",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := normalizePathSegment(in); got != want {
				t.Fatalf("normalizePathSegment(%q) = %q, want %q", in, got, want)
			}
		})
	}
}
