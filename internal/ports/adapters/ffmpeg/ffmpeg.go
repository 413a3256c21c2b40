package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
)

const diagnosticBytes = 4096

type Adapter struct {
	ffmpeg  string
	ffprobe string
	run     Runner
}

var (
	_ ports.Prober            = (*Adapter)(nil)
	_ ports.SubtitleExtractor = (*Adapter)(nil)
	_ ports.Encoder           = (*Adapter)(nil)
)

func New(ffmpegPath, ffprobePath string) *Adapter {
	return NewWithRunner(ffmpegPath, ffprobePath, execRunner{})
}

func NewWithRunner(ffmpegPath, ffprobePath string, r Runner) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath, run: r}
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		Index        int    `json:"index"`
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		Tags         struct {
			Language string `json:"language"`
		} `json:"tags"`
	} `json:"streams"`
}

func (a *Adapter) Probe(ctx context.Context, media string) (types.MediaInfo, error) {
	if _, err := os.Stat(media); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.MediaInfo{}, fmt.Errorf("%s: %w", media, types.ErrSourceMediaMissing)
		}
		return types.MediaInfo{}, fmt.Errorf("stat %s: %w", media, err)
	}
	var out bytes.Buffer
	stderr, err := a.run.Run(ctx, a.ffprobe, []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		media,
	}, &out)
	if err != nil {
		return types.MediaInfo{}, fmt.Errorf("ffprobe %s: %w\n%s", media, err, tail(stderr, diagnosticBytes))
	}
	return parseProbe(media, out.Bytes())
}

func parseProbe(media string, b []byte) (types.MediaInfo, error) {
	var po probeOutput
	if err := json.Unmarshal(b, &po); err != nil {
		return types.MediaInfo{}, fmt.Errorf("decode ffprobe output: %w", err)
	}
	info := types.MediaInfo{Path: media}
	if s := strings.TrimSpace(po.Format.Duration); s != "" {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.MediaInfo{}, fmt.Errorf("parse duration %q: %w", s, err)
		}
		info.Duration = d
	}
	for _, s := range po.Streams {
		switch s.CodecType {
		case "video":
			if info.Width == 0 {
				info.Width, info.Height = s.Width, s.Height
				info.FrameRate = parseRate(s.AvgFrameRate)
			}
		case "audio":
			info.HasAudio = true
		case "subtitle":
			info.Subtitles = append(info.Subtitles, types.SubtitleStream{
				Index:    s.Index,
				Codec:    s.CodecName,
				Language: s.Tags.Language,
			})
		}
	}
	return info, nil
}

// parseRate reads ffprobe's "num/den" frame rates.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

var textSubtitleCodecs = map[string]bool{
	"subrip":   true,
	"srt":      true,
	"ass":      true,
	"ssa":      true,
	"webvtt":   true,
	"mov_text": true,
	"text":     true,
}

// SelectStream resolves sel against the probed streams.
func SelectStream(streams []types.SubtitleStream, sel ports.StreamSelector) (types.SubtitleStream, error) {
	if sel.Index >= 0 {
		for _, s := range streams {
			if s.Index == sel.Index {
				return s, nil
			}
		}
		return types.SubtitleStream{}, fmt.Errorf("stream %d is not a subtitle stream: %w", sel.Index, types.ErrNoSubtitleStream)
	}
	codec := sel.Codec
	if codec == "" {
		codec = "subrip"
	}
	for _, s := range streams {
		if s.Codec == codec {
			return s, nil
		}
	}
	if sel.AnyCodec {
		for _, s := range streams {
			if textSubtitleCodecs[s.Codec] {
				return s, nil
			}
		}
	}
	return types.SubtitleStream{}, fmt.Errorf("no %s subtitle stream among %d: %w", codec, len(streams), types.ErrNoSubtitleStream)
}

func (a *Adapter) ExtractSubtitles(ctx context.Context, media string, sel ports.StreamSelector, outPath string) error {
	info, err := a.Probe(ctx, media)
	if err != nil {
		return err
	}
	st, err := SelectStream(info.Subtitles, sel)
	if err != nil {
		return err
	}
	stderr, err := a.run.Run(ctx, a.ffmpeg, []string{
		"-y",
		"-v", "error",
		"-i", media,
		"-map", "0:" + strconv.Itoa(st.Index),
		"-c:s", "srt",
		outPath,
	}, nil)
	if err != nil {
		return fmt.Errorf("ffmpeg extract subtitles: %w\n%s", err, tail(stderr, diagnosticBytes))
	}
	return nil
}
