//go:build integration

package itest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/reelcut/internal/pipeline"
)

func TestE2E_SplitTranscriptTrim(t *testing.T) {
	repoRoot := mustRepoRoot(t)
	tmp := t.TempDir()
	media := makeMedia(t, tmp, "Feature Film.mkv", true)
	env := map[string]string{"REELCUT_ROOT": filepath.Join(tmp, "root")}

	// split
	res := runCLI(t, repoRoot, []string{"split", media, "--parts", "2", "--clean", "--out", filepath.Join(tmp, "split")}, env)
	if res.exitCode != 0 {
		t.Fatalf("split failed:\n%s", res.output)
	}
	for _, name := range []string{"Feature Film_part1.txt", "Feature Film_part2.txt"} {
		if !strings.Contains(res.output, name) {
			t.Fatalf("split output missing %q:\n%s", name, res.output)
		}
	}

	// transcript
	raw := filepath.Join(tmp, "raw.txt")
	res = runCLI(t, repoRoot, []string{"transcript", media, "-o", raw}, env)
	if res.exitCode != 0 {
		t.Fatalf("transcript failed:\n%s", res.output)
	}
	b, err := os.ReadFile(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "00:00:01,000 - line number 1\n") {
		t.Fatalf("unexpected transcript:\n%s", b)
	}

	// trim: every cue becomes a clip, two per output file
	outDir := filepath.Join(tmp, "trim")
	res = runCLI(t, repoRoot, []string{"trim", media, "-t", raw, "--out", outDir, "--group", "2", "--archive", "--height", "360"}, env)
	if res.exitCode != 0 {
		t.Fatalf("trim failed:\n%s", res.output)
	}

	var files []string
	for _, l := range strings.Split(res.output, "\n") {
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, outDir) {
			files = append(files, l)
		}
	}
	if len(files) != 4 {
		t.Fatalf("expected 3 parts and an archive, got %v\noutput:\n%s", files, res.output)
	}
	if filepath.Base(files[3]) != "Feature Film_clips.zip" {
		t.Fatalf("archive missing: %v", files)
	}

	m, err := pipeline.ReadManifest(filepath.Dir(files[0]))
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if m.Kind != pipeline.KindTrim || len(m.Artifacts) != 3 || m.Output == nil || m.Output.Height != 360 {
		js, _ := json.MarshalIndent(m, "", "  ")
		t.Fatalf("unexpected manifest:\n%s", js)
	}
	for i, art := range m.Artifacts {
		p, err := probeMedia(filepath.Join(filepath.Dir(files[0]), art.File))
		if err != nil {
			t.Fatal(err)
		}
		if p.duration < art.Duration-0.5 || p.duration > art.Duration+0.5 {
			t.Fatalf("artifact %d duration %.2fs, manifest says %.2fs", i, p.duration, art.Duration)
		}
		if p.height != 360 || p.width%2 != 0 {
			t.Fatalf("artifact %d is %dx%d", i, p.width, p.height)
		}
		if len(p.codecs["audio"]) != 0 {
			t.Fatalf("artifact %d carries audio %v", i, p.codecs["audio"])
		}
	}
}

func TestE2E_TrimDropsLateOffsets(t *testing.T) {
	repoRoot := mustRepoRoot(t)
	tmp := t.TempDir()
	media := makeMedia(t, tmp, "short.mp4", false)
	transcript := filepath.Join(tmp, "t.txt")
	if err := os.WriteFile(transcript, []byte("00:00:05 - early\n00:10:00 - too late\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := runCLI(t, repoRoot, []string{"trim", media, "-t", transcript, "--out", filepath.Join(tmp, "out")},
		map[string]string{"REELCUT_ROOT": filepath.Join(tmp, "root")})
	if res.exitCode != 0 {
		t.Fatalf("trim failed:\n%s", res.output)
	}
	if !strings.Contains(res.output, "dropped offset 00:10:00,000") {
		t.Fatalf("expected dropped notice:\n%s", res.output)
	}
	var out string
	for _, l := range strings.Split(res.output, "\n") {
		if strings.HasSuffix(l, "short_trimmed.mp4") {
			out = strings.TrimSpace(l)
		}
	}
	if out == "" {
		t.Fatalf("no output file reported:\n%s", res.output)
	}
	m, err := pipeline.ReadManifest(filepath.Dir(out))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Dropped) != 1 || m.Dropped[0].Offset != 600 {
		t.Fatalf("unexpected dropped windows %+v", m.Dropped)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}
