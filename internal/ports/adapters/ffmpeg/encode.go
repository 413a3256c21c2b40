package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"github.com/forPelevin/reelcut/internal/domain/assembly"
	"github.com/forPelevin/reelcut/internal/types"
)

func (a *Adapter) Encode(ctx context.Context, media string, tl types.Timeline, spec types.OutputSpec, outPath string, onProgress func(float64)) error {
	if _, err := os.Stat(media); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", media, types.ErrSourceMediaMissing)
		}
		return fmt.Errorf("stat %s: %w", media, err)
	}
	args, err := BuildArgs(media, tl, spec, outPath)
	if err != nil {
		return err
	}
	pw := newProgressWriter(assembly.TotalDuration(tl), onProgress)
	stderr, err := a.run.Run(ctx, a.ffmpeg, args, pw)
	if err != nil {
		return &types.EncodeError{Output: outPath, Diagnostic: tail(stderr, diagnosticBytes), Err: err}
	}
	pw.finish()
	return nil
}

// BuildArgs renders the ffmpeg argument list for one timeline. Each clip is
// read through its own seeked input; clips sharing a window share one input
// through split.
func BuildArgs(media string, tl types.Timeline, spec types.OutputSpec, outPath string) (args []string, err error) {
	if len(tl.Clips) == 0 {
		return nil, fmt.Errorf("timeline %q has no clips", tl.Name)
	}
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("output size %dx%d is not set", spec.Width, spec.Height)
	}
	defer func() {
		// ffmpeg-go reports malformed graphs by panicking
		if r := recover(); r != nil {
			args, err = nil, fmt.Errorf("build filter graph for %s: %v", tl.Name, r)
		}
	}()

	videos, audios := clipSources(media, tl.Clips, spec.IncludeAudio)
	for i, c := range tl.Clips {
		videos[i] = videoChain(videos[i], c)
		if spec.IncludeAudio {
			audios[i] = audioChain(audios[i], c)
		}
	}

	v := videos[0]
	if len(videos) > 1 {
		v = ffmpeggo.Concat(videos, ffmpeggo.KwArgs{"v": 1, "a": 0})
	}
	v = v.Filter("scale", ffmpeggo.Args{strconv.Itoa(spec.Width), strconv.Itoa(spec.Height)}).
		Filter("setsar", ffmpeggo.Args{"1"})
	if spec.FPS > 0 {
		v = v.Filter("fps", ffmpeggo.Args{num(spec.FPS)})
	}
	if spec.PixelFormat != "" {
		v = v.Filter("format", ffmpeggo.Args{spec.PixelFormat})
	}

	streams := []*ffmpeggo.Stream{v}
	if spec.IncludeAudio {
		au := audios[0]
		if len(audios) > 1 {
			au = ffmpeggo.Concat(audios, ffmpeggo.KwArgs{"v": 0, "a": 1})
		}
		streams = append(streams, au)
	}

	out := ffmpeggo.Output(streams, outPath, outputKwArgs(spec)).
		OverWriteOutput().
		GlobalArgs("-v", "error", "-nostats", "-progress", "pipe:1")
	return out.GetArgs(), nil
}

func outputKwArgs(spec types.OutputSpec) ffmpeggo.KwArgs {
	kw := ffmpeggo.KwArgs{"movflags": "+faststart"}
	if spec.VideoCodec != "" {
		kw["c:v"] = spec.VideoCodec
	}
	if spec.Profile != "" {
		kw["profile:v"] = spec.Profile
	}
	if spec.Level != "" {
		kw["level"] = spec.Level
	}
	if spec.Threads > 0 {
		kw["threads"] = strconv.Itoa(spec.Threads)
	}
	if spec.IncludeAudio && spec.AudioCodec != "" {
		kw["c:a"] = spec.AudioCodec
	}
	return kw
}

type windowKey struct{ start, length string }

// clipSources opens one input per distinct window and splits it when
// several clips read the same window, since a filter output can only be
// consumed once.
func clipSources(media string, clips []types.Clip, withAudio bool) ([]*ffmpeggo.Stream, []*ffmpeggo.Stream) {
	groups := make(map[windowKey][]int)
	var order []windowKey
	for i, c := range clips {
		k := windowKey{secs(c.Window.Start), secs(c.Window.Length())}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	videos := make([]*ffmpeggo.Stream, len(clips))
	var audios []*ffmpeggo.Stream
	if withAudio {
		audios = make([]*ffmpeggo.Stream, len(clips))
	}
	for _, k := range order {
		idx := groups[k]
		in := ffmpeggo.Input(mediaArg(media), ffmpeggo.KwArgs{"ss": k.start, "t": k.length})
		fan(in.Video(), "split", idx, videos)
		if withAudio {
			fan(in.Audio(), "asplit", idx, audios)
		}
	}
	return videos, audios
}

func fan(s *ffmpeggo.Stream, filter string, idx []int, dst []*ffmpeggo.Stream) {
	if len(idx) == 1 {
		dst[idx[0]] = s
		return
	}
	node := ffmpeggo.FilterMultiOutput([]*ffmpeggo.Stream{s}, filter, ffmpeggo.Args{strconv.Itoa(len(idx))})
	for j, i := range idx {
		dst[i] = node.Stream(ffmpeggo.Label(strconv.Itoa(j)), "")
	}
}

func videoChain(v *ffmpeggo.Stream, c types.Clip) *ffmpeggo.Stream {
	for _, s := range c.Steps {
		switch s.Kind {
		case types.StepSpeed:
			v = v.Filter("setpts", ffmpeggo.Args{"PTS/" + num(s.Factor)})
		case types.StepMirror:
			v = v.Filter("hflip", ffmpeggo.Args{})
		case types.StepFadeIn:
			v = v.Filter("fade", ffmpeggo.Args{}, ffmpeggo.KwArgs{"t": "in", "st": "0", "d": secs(s.Duration)})
		case types.StepFadeOut:
			v = v.Filter("fade", ffmpeggo.Args{}, ffmpeggo.KwArgs{"t": "out", "st": secs(fadeOutStart(c, s)), "d": secs(s.Duration)})
		}
	}
	return v
}

func audioChain(au *ffmpeggo.Stream, c types.Clip) *ffmpeggo.Stream {
	for _, s := range c.Steps {
		switch s.Kind {
		case types.StepSpeed:
			for _, f := range atempoChain(s.Factor) {
				au = au.Filter("atempo", ffmpeggo.Args{num(f)})
			}
		case types.StepFadeIn:
			au = au.Filter("afade", ffmpeggo.Args{}, ffmpeggo.KwArgs{"t": "in", "st": "0", "d": secs(s.Duration)})
		case types.StepFadeOut:
			au = au.Filter("afade", ffmpeggo.Args{}, ffmpeggo.KwArgs{"t": "out", "st": secs(fadeOutStart(c, s)), "d": secs(s.Duration)})
		}
	}
	return au
}

func fadeOutStart(c types.Clip, s types.Step) float64 {
	st := c.Duration - s.Duration
	if st < 0 {
		return 0
	}
	return st
}

// atempoChain splits factor into steps atempo accepts (0.5..2).
func atempoChain(factor float64) []float64 {
	var out []float64
	for factor < 0.5 {
		out = append(out, 0.5)
		factor /= 0.5
	}
	for factor > 2 {
		out = append(out, 2)
		factor /= 2
	}
	return append(out, factor)
}

// mediaArg keeps ffmpeg from reading a leading dash as an option.
func mediaArg(p string) string {
	if len(p) > 0 && p[0] == '-' {
		return "./" + p
	}
	return p
}

func secs(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
