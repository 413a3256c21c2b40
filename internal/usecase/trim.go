package usecase

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/forPelevin/reelcut/internal/archive"
	"github.com/forPelevin/reelcut/internal/domain/assembly"
	"github.com/forPelevin/reelcut/internal/domain/clips"
	"github.com/forPelevin/reelcut/internal/domain/geometry"
	"github.com/forPelevin/reelcut/internal/domain/timestamps"
	"github.com/forPelevin/reelcut/internal/domain/transform"
	"github.com/forPelevin/reelcut/internal/progress"
	"github.com/forPelevin/reelcut/internal/types"
)

type TrimInput struct {
	Media      string
	Transcript string
	Clips      clips.Params
	Selector   transform.Selector
	Profile    geometry.Profile
	GroupSize  int
	Archive    bool
	Base       string
	OutDir     string
}

type TrimResult struct {
	Plan      clips.Plan
	Output    types.OutputSpec
	Timelines []types.Timeline
	Artifacts []types.ArtifactInfo
	Archive   string
}

// Trim turns a transcript into one or more encoded highlight files. Clips
// keep transcript order; encodes run one after another.
func (u Usecase) Trim(ctx context.Context, in TrimInput, rep *progress.Reporter) (TrimResult, error) {
	if in.Selector == nil {
		return TrimResult{}, fmt.Errorf("trim: no recipe selector")
	}
	base := in.Base
	if base == "" {
		base = BaseName(in.Media)
	}

	rep.Stage("plan")
	offsets, err := timestamps.ParseText(in.Transcript)
	if err != nil {
		return TrimResult{}, err
	}
	info, err := u.d.Prober.Probe(ctx, in.Media)
	if err != nil {
		return TrimResult{}, err
	}
	plan, err := clips.Build(offsets, in.Clips, info.Duration)
	for _, w := range plan.Dropped {
		u.d.Log.Warn("window dropped", "offset", w.Offset, "start", w.Start, "media_duration", info.Duration)
	}
	if err != nil {
		return TrimResult{}, err
	}
	spec, err := geometry.OutputSpec(info, in.Profile)
	if err != nil {
		return TrimResult{}, err
	}

	cl := transform.Apply(plan.Windows, in.Selector)
	tls := assembly.Assemble(cl, assembly.Options{GroupSize: in.GroupSize, Base: base, Ext: spec.Container})
	u.d.Log.Info("trim planned",
		"offsets", len(offsets),
		"windows", len(plan.Windows),
		"dropped", len(plan.Dropped),
		"timelines", len(tls),
		"size", fmt.Sprintf("%dx%d", spec.Width, spec.Height))

	res := TrimResult{Plan: plan, Output: spec, Timelines: tls}
	var files []string
	for i, tl := range tls {
		rep.Stage(fmt.Sprintf("encode %d/%d", i+1, len(tls)))
		out := filepath.Join(in.OutDir, tl.Name)
		if err := u.d.Encoder.Encode(ctx, in.Media, tl, spec, out, progress.Span(rep, i, len(tls))); err != nil {
			return TrimResult{}, err
		}
		files = append(files, out)
		res.Artifacts = append(res.Artifacts, types.ArtifactInfo{
			Name:     tl.Name,
			File:     tl.Name,
			Duration: assembly.TotalDuration(tl),
			Clips:    len(tl.Clips),
		})
		u.d.Log.Info("timeline encoded", "output", tl.Name, "clips", len(tl.Clips))
	}

	if in.Archive && len(tls) > 1 {
		rep.Stage("archive")
		name := assembly.ArchiveName(base)
		if err := archive.Zip(filepath.Join(in.OutDir, name), files); err != nil {
			return TrimResult{}, err
		}
		res.Archive = name
	}
	return res, nil
}
