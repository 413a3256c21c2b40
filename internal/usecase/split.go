package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forPelevin/reelcut/internal/domain/assembly"
	"github.com/forPelevin/reelcut/internal/domain/subtitles"
	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/progress"
	"github.com/forPelevin/reelcut/internal/types"
)

const sampleLines = 5

type SplitInput struct {
	Media    string
	Selector ports.StreamSelector
	Parts    int
	// Clean strips sequence numbers and writes .txt parts.
	Clean  bool
	Base   string
	OutDir string
}

type SplitResult struct {
	Subtitles string
	Artifacts []types.ArtifactInfo
	Sample    string
}

func (u Usecase) Split(ctx context.Context, in SplitInput, rep *progress.Reporter) (SplitResult, error) {
	base := in.Base
	if base == "" {
		base = BaseName(in.Media)
	}
	srt := filepath.Join(in.OutDir, base+".srt")

	rep.Stage("extract")
	if err := u.d.Subtitles.ExtractSubtitles(ctx, in.Media, in.Selector, srt); err != nil {
		return SplitResult{}, err
	}
	rep.Update(0.5)

	b, err := os.ReadFile(srt)
	if err != nil {
		return SplitResult{}, fmt.Errorf("read extracted subtitles: %w", err)
	}
	text := string(b)
	ext := "srt"
	if in.Clean {
		text = subtitles.StripNumbering(text)
		ext = "txt"
	}

	rep.Stage("split")
	parts := subtitles.Split(text, in.Parts)
	res := SplitResult{Subtitles: filepath.Base(srt)}
	for i, p := range parts {
		name := assembly.PartName(base, i+1, ext)
		if err := writeFile(filepath.Join(in.OutDir, name), []byte(p)); err != nil {
			return SplitResult{}, fmt.Errorf("write %s: %w", name, err)
		}
		res.Artifacts = append(res.Artifacts, types.ArtifactInfo{Name: name, File: name})
		rep.Update(0.5 + 0.5*float64(i+1)/float64(len(parts)))
	}
	if in.Clean && len(parts) > 0 {
		res.Sample = subtitles.Sample(parts[0], sampleLines)
	}
	u.d.Log.Info("subtitles split", "media", filepath.Base(in.Media), "parts", len(parts), "clean", in.Clean)
	return res, nil
}
