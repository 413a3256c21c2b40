package geometry

import (
	"testing"

	"github.com/forPelevin/reelcut/internal/types"
)

func TestNormalize_Table(t *testing.T) {
	tests := []struct {
		name         string
		w, h, target int
		wantW, wantH int
	}{
		{"hd to 720", 1920, 1080, 720, 1280, 720},
		{"already even", 1280, 720, 1080, 1920, 1080},
		{"odd bumped", 641, 480, 480, 642, 480},
		{"portrait", 1080, 1920, 1080, 608, 1080},
		{"rounded then odd", 853, 480, 1080, 1920, 1080},
		{"near square", 1000, 999, 999, 1000, 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := Normalize(tt.w, tt.h, tt.target)
			if err != nil {
				t.Fatal(err)
			}
			if w != tt.wantW || h != tt.wantH {
				t.Fatalf("got %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
			if w%2 != 0 {
				t.Fatalf("width %d is odd", w)
			}
		})
	}
}

func TestNormalize_OddIncrementsByOne(t *testing.T) {
	// 721*1/1 = 721 -> 722
	w, _, err := Normalize(721, 100, 100)
	if err != nil {
		t.Fatal(err)
	}
	if w != 722 {
		t.Fatalf("expected 722, got %d", w)
	}
}

func TestNormalize_RejectsBadInput(t *testing.T) {
	for _, in := range [][3]int{{0, 1080, 720}, {1920, 0, 720}, {1920, 1080, 0}, {-1, 1, 1}} {
		if _, _, err := Normalize(in[0], in[1], in[2]); err == nil {
			t.Fatalf("expected error for %v", in)
		}
	}
}

func TestOutputSpec_Defaults(t *testing.T) {
	info := types.MediaInfo{Path: "in.mp4", Width: 1920, Height: 1080, HasAudio: true}
	spec, err := OutputSpec(info, DefaultProfile())
	if err != nil {
		t.Fatal(err)
	}
	if spec.Width != 1920 || spec.Height != 1080 {
		t.Fatalf("unexpected size %dx%d", spec.Width, spec.Height)
	}
	if spec.VideoCodec != "libx264" || spec.Profile != "baseline" || spec.Level != "3.0" || spec.PixelFormat != "yuv420p" {
		t.Fatalf("unexpected profile %+v", spec)
	}
	if spec.IncludeAudio || spec.AudioCodec != "" {
		t.Fatalf("audio should be off by default: %+v", spec)
	}
}

func TestOutputSpec_AudioNeedsSourceTrack(t *testing.T) {
	p := DefaultProfile()
	p.IncludeAudio = true
	spec, err := OutputSpec(types.MediaInfo{Width: 640, Height: 360}, p)
	if err != nil {
		t.Fatal(err)
	}
	if spec.IncludeAudio {
		t.Fatalf("source without audio cannot carry audio")
	}
}
