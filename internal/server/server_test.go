package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/forPelevin/reelcut/internal/config"
	"github.com/forPelevin/reelcut/internal/jobs"
	"github.com/forPelevin/reelcut/internal/ports/portstest"
	"github.com/forPelevin/reelcut/internal/progress"
	"github.com/forPelevin/reelcut/internal/types"
	"github.com/forPelevin/reelcut/internal/usecase"
	"github.com/forPelevin/reelcut/internal/workspace"
)

type harness struct {
	srv   *Server
	store *jobs.Store
	media *portstest.Media
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.Root = t.TempDir()
	ws, err := workspace.New(cfg.Paths.Root)
	if err != nil {
		t.Fatal(err)
	}
	store, err := jobs.Open(cfg.DBPath())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	m := &portstest.Media{
		Info: types.MediaInfo{Duration: 60, Width: 1280, Height: 720},
		SRT:  portstest.SRT(8),
	}
	srv, err := New(Deps{
		Config:    &cfg,
		Workspace: ws,
		Store:     store,
		UC:        usecase.New(usecase.Deps{Prober: m, Subtitles: m, Encoder: m}),
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.RunQueue(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &harness{srv: srv, store: store, media: m}
}

func (h *harness) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := h.srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func (h *harness) postJSON(t *testing.T, path string, body any) (int, map[string]any) {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	code, raw := h.do(t, req)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return code, out
}

func (h *harness) upload(t *testing.T, name string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("not really video"))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	code, raw := h.do(t, req)
	if code != http.StatusCreated {
		t.Fatalf("upload status %d: %s", code, raw)
	}
	var out struct {
		MediaID string `json:"media_id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.MediaID == "" {
		t.Fatalf("upload response %s: %v", raw, err)
	}
	return out.MediaID
}

func (h *harness) wait(t *testing.T, id string) jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := h.store.Get(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		if j.Status.Terminal() {
			return j
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return jobs.Job{}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	code, body := h.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if code != http.StatusOK || !strings.Contains(string(body), `"status":"ok"`) {
		t.Fatalf("unexpected health response %d %s", code, body)
	}
}

func TestTrimJob_EndToEnd(t *testing.T) {
	h := newHarness(t)
	mediaID := h.upload(t, "Movie.mp4")

	code, out := h.postJSON(t, "/api/jobs/trim", map[string]any{
		"media_id":        mediaID,
		"transcript_text": "00:00:10,000 - one\n00:00:02,000 - two\n00:00:20,000 - three\n",
		"group_size":      2,
		"archive":         true,
	})
	if code != http.StatusAccepted {
		t.Fatalf("submit status %d: %v", code, out)
	}
	id, _ := out["job_id"].(string)
	j := h.wait(t, id)
	if j.Status != jobs.StatusDone {
		t.Fatalf("job failed: %+v", j)
	}
	if j.Manifest == nil || j.Manifest.Archive != "movie_clips.zip" || len(j.Manifest.Artifacts) != 2 {
		t.Fatalf("unexpected manifest %+v", j.Manifest)
	}

	code, body := h.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs/"+id+"/files/movie_part_1.mp4", nil))
	if code != http.StatusOK || string(body) != "movie_part_1.mp4" {
		t.Fatalf("download: %d %q", code, body)
	}
	code, body = h.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs/"+id+"/progress", nil))
	var snap progress.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil || code != http.StatusOK {
		t.Fatalf("progress: %d %s", code, body)
	}
	if snap.Active || snap.Percent != 100 {
		t.Fatalf("finished job should report 100%% inactive: %+v", snap)
	}

	tls := h.media.Encoded()
	if len(tls) != 2 || tls[0].Clips[0].Window.Offset != 10 || tls[0].Clips[1].Window.Offset != 2 {
		t.Fatalf("clips must keep transcript order across groups: %+v", tls)
	}
}

func TestSplitJob(t *testing.T) {
	h := newHarness(t)
	mediaID := h.upload(t, "show.mkv")
	code, out := h.postJSON(t, "/api/jobs/split", map[string]any{"media_id": mediaID, "parts": 2})
	if code != http.StatusAccepted {
		t.Fatalf("submit status %d: %v", code, out)
	}
	j := h.wait(t, out["job_id"].(string))
	if j.Status != jobs.StatusDone || len(j.Manifest.Artifacts) != 3 {
		t.Fatalf("unexpected split job %+v", j)
	}
	if j.Manifest.Artifacts[1].Name != "show_part1.srt" {
		t.Fatalf("numbered split should keep .srt parts: %+v", j.Manifest.Artifacts)
	}
}

func TestFailedJobRecordsKind(t *testing.T) {
	h := newHarness(t)
	h.media.ExtractErr = types.ErrNoSubtitleStream
	mediaID := h.upload(t, "silent.mp4")
	_, out := h.postJSON(t, "/api/jobs/split", map[string]any{"media_id": mediaID})
	j := h.wait(t, out["job_id"].(string))
	if j.Status != jobs.StatusFailed || j.ErrorKind != "no_subtitle_stream" {
		t.Fatalf("unexpected job %+v", j)
	}
}

func TestFinishedJobLeavesTracker(t *testing.T) {
	h := newHarness(t)
	mediaID := h.upload(t, "clip.mp4")
	_, out := h.postJSON(t, "/api/jobs/split", map[string]any{"media_id": mediaID})
	id, _ := out["job_id"].(string)
	if j := h.wait(t, id); j.Status != jobs.StatusDone {
		t.Fatalf("job failed: %+v", j)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := h.srv.tracker.Get(id); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("finished job %s stayed in the tracker", id)
		}
		time.Sleep(10 * time.Millisecond)
	}

	code, body := h.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs/"+id+"/progress", nil))
	var snap progress.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil || code != http.StatusOK {
		t.Fatalf("progress: %d %s", code, body)
	}
	if snap.Active || snap.Percent != 100 || snap.Stage != "done" {
		t.Fatalf("stored progress expected after the job finished: %+v", snap)
	}

	h.srv.now = func() time.Time { return time.Now().Add(100 * time.Hour) }
	res, err := h.srv.Sweep(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Jobs != 1 {
		t.Fatalf("expected the finished job to be swept, got %+v", res)
	}
	code, _ = h.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs/"+id+"/progress", nil))
	if code != http.StatusNotFound {
		t.Fatalf("swept job progress: got %d, want 404", code)
	}
}

func TestSubmitValidation(t *testing.T) {
	h := newHarness(t)
	mediaID := h.upload(t, "clip.mp4")

	tests := []struct {
		name     string
		path     string
		body     map[string]any
		wantCode int
		wantKind string
	}{
		{"no timestamps", "/api/jobs/trim", map[string]any{"media_id": mediaID, "transcript_text": "hello\nworld"}, 422, "no_valid_timestamps"},
		{"missing media id", "/api/jobs/split", map[string]any{}, 400, "bad_request"},
		{"unknown media", "/api/jobs/split", map[string]any{"media_id": "6f1c1d52-8a0e-4c43-9a57-3c2f4b1e9d10"}, 404, "source_media_missing"},
		{"too many parts", "/api/jobs/split", map[string]any{"media_id": mediaID, "parts": 50000}, 400, "bad_request"},
		{"negative parts", "/api/jobs/split", map[string]any{"media_id": mediaID, "parts": -1}, 400, "bad_request"},
		{"negative group", "/api/jobs/trim", map[string]any{"media_id": mediaID, "transcript_text": "00:00:01 - x", "group_size": -1}, 400, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := h.postJSON(t, tt.path, tt.body)
			if code != tt.wantCode || out["error_kind"] != tt.wantKind {
				t.Fatalf("got %d %v, want %d %s", code, out, tt.wantCode, tt.wantKind)
			}
		})
	}

	code, body := h.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	if code != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("rejected submissions must not create jobs: %d %s", code, body)
	}
}

func TestJobLookups(t *testing.T) {
	h := newHarness(t)
	code, _ := h.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil))
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	code, body := h.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	if code != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("empty list: %d %s", code, body)
	}

	ctx := context.Background()
	if _, err := h.store.Create(ctx, jobs.Job{ID: "old", Kind: "trim"}); err != nil {
		t.Fatal(err)
	}
	if err := h.store.Fail(ctx, "old", errors.New("boom")); err != nil {
		t.Fatal(err)
	}
	code, body = h.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs/old/progress", nil))
	var snap progress.Snapshot
	_ = json.Unmarshal(body, &snap)
	if code != http.StatusOK || snap.Active || snap.Stage != "failed" || snap.Err != "boom" {
		t.Fatalf("stored progress fallback: %d %+v", code, snap)
	}
	code, _ = h.do(t, httptest.NewRequest(http.MethodGet, "/ws/jobs/old", nil))
	if code != http.StatusUpgradeRequired {
		t.Fatalf("plain GET on websocket route should need upgrade, got %d", code)
	}
}

func TestPump(t *testing.T) {
	snaps := make(chan progress.Snapshot, 3)
	snaps <- progress.Snapshot{Percent: 10, Active: true}
	snaps <- progress.Snapshot{Percent: 100, Active: false}
	snaps <- progress.Snapshot{Percent: 100, Active: false}
	var got []int
	err := pump(snaps, make(chan struct{}), time.Hour, func(s progress.Snapshot) error {
		got = append(got, s.Percent)
		return nil
	}, func() error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1] != 100 {
		t.Fatalf("pump should stop at the first inactive snapshot, got %v", got)
	}

	done := make(chan struct{})
	close(done)
	if err := pump(make(chan progress.Snapshot), done, time.Hour, nil, nil); err != nil {
		t.Fatalf("closed done should end the pump: %v", err)
	}
}

func TestStatusForKind(t *testing.T) {
	cases := map[string]int{
		"no_valid_timestamps":  422,
		"window_out_of_range":  422,
		"source_media_missing": 404,
		"encode_failure":       500,
		"internal":             500,
	}
	for kind, want := range cases {
		if got := StatusForKind(kind); got != want {
			t.Fatalf("StatusForKind(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestServe_RefusesLockedRoot(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Root = t.TempDir()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	held := flock.New(filepath.Join(cfg.Paths.Root, "reelcut.lock"))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-lock: %v %v", ok, err)
	}
	defer held.Unlock()

	err = Serve(context.Background(), &cfg, usecase.New(usecase.Deps{}), nil)
	if !errors.Is(err, ErrRootLocked) {
		t.Fatalf("expected ErrRootLocked, got %v", err)
	}
}
