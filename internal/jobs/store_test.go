package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/forPelevin/reelcut/internal/types"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Lifecycle(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	j, err := s.Create(ctx, Job{ID: "a", Kind: "trim", Media: "/m/in.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if j.Status != StatusQueued {
		t.Fatalf("expected queued, got %s", j.Status)
	}
	if err := s.MarkRunning(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Progress(ctx, "a", 40, "encode"); err != nil {
		t.Fatal(err)
	}
	if err := s.Progress(ctx, "a", 10, "encode"); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusRunning || got.Percent != 40 {
		t.Fatalf("percent must not go backwards: %+v", got)
	}

	m := types.Manifest{JobID: "a", Kind: "trim", Artifacts: []types.ArtifactInfo{{Name: "in_trimmed.mp4", Clips: 3}}}
	if err := s.Complete(ctx, "a", m); err != nil {
		t.Fatal(err)
	}
	got, err = s.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusDone || got.Percent != 100 || got.Manifest == nil || got.Manifest.Artifacts[0].Clips != 3 {
		t.Fatalf("unexpected completed job %+v", got)
	}
	if !got.Status.Terminal() {
		t.Fatalf("done should be terminal")
	}
}

func TestStore_FailRecordsKind(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if _, err := s.Create(ctx, Job{ID: "b", Kind: "split"}); err != nil {
		t.Fatal(err)
	}
	jobErr := fmt.Errorf("extract: %w", types.ErrNoSubtitleStream)
	if err := s.Fail(ctx, "b", jobErr); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, "b")
	if got.Status != StatusFailed || got.ErrorKind != "no_subtitle_stream" || got.Error != jobErr.Error() {
		t.Fatalf("unexpected failed job %+v", got)
	}
}

func TestStore_NotFound(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.MarkRunning(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestStore_ListAndSweepQueries(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	for _, id := range []string{"j1", "j2", "j3"} {
		if _, err := s.Create(ctx, Job{ID: id, Kind: "trim"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Complete(ctx, "j1", types.Manifest{JobID: "j1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkRunning(ctx, "j3"); err != nil {
		t.Fatal(err)
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "j3" || all[2].ID != "j1" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if top, _ := s.List(ctx, 1); len(top) != 1 {
		t.Fatalf("limit ignored: %d", len(top))
	}

	old, err := s.FinishedBefore(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(old) != 1 || old[0].ID != "j1" {
		t.Fatalf("only finished jobs are sweep candidates, got %+v", old)
	}

	n, err := s.Interrupted(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 interrupted jobs, got %d", n)
	}
	if err := s.Delete(ctx, "j1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "j1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted job still present: %v", err)
	}
}

func TestStore_ActiveMedia(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for i, media := range []string{"/m/a.mp4", "/m/a.mp4", "/m/b.mp4", "/m/c.mp4"} {
		if _, err := s.Create(ctx, Job{ID: fmt.Sprintf("j%d", i), Kind: "trim", Media: media}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.MarkRunning(ctx, "j2"); err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(ctx, "j3", types.Manifest{}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ActiveMedia(ctx)
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(got)
	if len(got) != 2 || got[0] != "/m/a.mp4" || got[1] != "/m/b.mp4" {
		t.Fatalf("unexpected active media %v", got)
	}
}

func TestStore_CreateRequiresID(t *testing.T) {
	s := openStore(t)
	if _, err := s.Create(context.Background(), Job{Kind: "trim"}); err == nil {
		t.Fatalf("expected error")
	}
}
