//go:build integration

package itest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

const fixtureSeconds = 20

// fixtureSRT has one cue every four seconds.
func fixtureSRT() string {
	var b strings.Builder
	for i := 0; i < fixtureSeconds/4; i++ {
		s := i*4 + 1
		fmt.Fprintf(&b, "%d\n00:00:%02d,000 --> 00:00:%02d,500\nline number %d\n\n", i+1, s, s+2, i+1)
	}
	return b.String()
}

// makeMedia renders a 1280x720 test pattern with a sine tone. With subs
// set, a subrip track is muxed in as stream 0:s:0.
func makeMedia(t *testing.T, dir, name string, subs bool) string {
	t.Helper()
	out := filepath.Join(dir, name)
	args := []string{
		"-y",
		"-f", "lavfi", "-i", fmt.Sprintf("testsrc=s=1280x720:r=25:d=%d", fixtureSeconds),
		"-f", "lavfi", "-i", fmt.Sprintf("sine=frequency=440:duration=%d", fixtureSeconds),
	}
	if subs {
		srt := filepath.Join(dir, "fixture.srt")
		if err := os.WriteFile(srt, []byte(fixtureSRT()), 0o644); err != nil {
			t.Fatalf("write srt fixture: %v", err)
		}
		args = append(args, "-i", srt, "-map", "0:v", "-map", "1:a", "-map", "2:s", "-c:s", "srt")
	}
	args = append(args,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		out,
	)
	cmd := exec.Command("ffmpeg", args...)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
	return out
}
