package geometry

import (
	"fmt"
	"math"

	"github.com/forPelevin/reelcut/internal/types"
)

// Normalize scales (srcW, srcH) to targetH keeping aspect ratio. The width
// is bumped to the next even number when the scaled value is odd.
func Normalize(srcW, srcH, targetH int) (int, int, error) {
	if srcW <= 0 || srcH <= 0 || targetH <= 0 {
		return 0, 0, fmt.Errorf("invalid geometry %dx%d -> height %d", srcW, srcH, targetH)
	}
	w := int(math.Round(float64(srcW) * float64(targetH) / float64(srcH)))
	if w%2 != 0 {
		w++
	}
	return w, targetH, nil
}

// Profile is the single delivery target.
type Profile struct {
	TargetHeight int
	FPS          float64
	VideoCodec   string
	Profile      string
	Level        string
	PixelFormat  string
	Threads      int
	IncludeAudio bool
	AudioCodec   string
	Container    string
}

func DefaultProfile() Profile {
	return Profile{
		TargetHeight: 1080,
		FPS:          30,
		VideoCodec:   "libx264",
		Profile:      "baseline",
		Level:        "3.0",
		PixelFormat:  "yuv420p",
		Threads:      4,
		AudioCodec:   "aac",
		Container:    "mp4",
	}
}

// OutputSpec resolves the encoder settings for a probed source.
func OutputSpec(info types.MediaInfo, p Profile) (types.OutputSpec, error) {
	w, h, err := Normalize(info.Width, info.Height, p.TargetHeight)
	if err != nil {
		return types.OutputSpec{}, fmt.Errorf("normalize %s: %w", info.Path, err)
	}
	spec := types.OutputSpec{
		Width:        w,
		Height:       h,
		FPS:          p.FPS,
		VideoCodec:   p.VideoCodec,
		Profile:      p.Profile,
		Level:        p.Level,
		PixelFormat:  p.PixelFormat,
		Threads:      p.Threads,
		IncludeAudio: p.IncludeAudio && info.HasAudio,
		Container:    p.Container,
	}
	if spec.IncludeAudio {
		spec.AudioCodec = p.AudioCodec
	}
	return spec, nil
}
