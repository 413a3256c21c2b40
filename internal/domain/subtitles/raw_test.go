package subtitles

import (
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/reelcut/internal/domain/timestamps"
)

const sampleSRT = `1
00:00:02,000 --> 00:00:04,000
Run, Forrest!

2
00:01:05,250 --> 00:01:07,000
Life is like
a box of chocolates.
`

func TestRawTranscript_FeedsTimestampParser(t *testing.T) {
	subs, err := Read(strings.NewReader(sampleSRT), ".srt")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := RawTranscript(subs)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", len(lines), lines)
	}
	if lines[0] != "00:00:02,000 - Run, Forrest!" {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "00:01:05,250 - Life is like") {
		t.Fatalf("unexpected second line %q", lines[1])
	}

	offsets, err := timestamps.Parse(lines)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if offsets[0] != 2 || offsets[1] != 65.25 {
		t.Fatalf("unexpected offsets %v", offsets)
	}
}

func TestClock_Format(t *testing.T) {
	got := Clock(time.Hour + 61*time.Second + 234*time.Millisecond)
	if got != "01:01:01,234" {
		t.Fatalf("unexpected clock: %s", got)
	}
	if Clock(-time.Second) != "00:00:00,000" {
		t.Fatalf("negative durations should clamp to zero")
	}
}
