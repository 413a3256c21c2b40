package ports

import (
	"context"

	"github.com/forPelevin/reelcut/internal/types"
)

type Prober interface {
	Probe(ctx context.Context, media string) (types.MediaInfo, error)
}

// StreamSelector picks the subtitle track to extract. Index >= 0 selects an
// absolute stream index; otherwise the first stream with Codec wins, or the
// first text subtitle stream when AnyCodec is set.
type StreamSelector struct {
	Index    int
	Codec    string
	AnyCodec bool
}

func DefaultStreamSelector() StreamSelector {
	return StreamSelector{Index: -1, Codec: "subrip"}
}

type SubtitleExtractor interface {
	ExtractSubtitles(ctx context.Context, media string, sel StreamSelector, outPath string) error
}

// Encoder renders one timeline. onProgress receives non-decreasing values
// in [0,1] and may be nil.
type Encoder interface {
	Encode(ctx context.Context, media string, tl types.Timeline, spec types.OutputSpec, outPath string, onProgress func(float64)) error
}

// Narrator condenses a chunk of raw transcript lines into narration lines
// that keep their leading timestamps.
type Narrator interface {
	Narrate(ctx context.Context, chunk []string, language string) ([]string, error)
}
