package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/reelcut/internal/domain/subtitles"
	"github.com/forPelevin/reelcut/internal/ports"
)

// Transcript renders a subtitle file as raw "HH:MM:SS,mmm - text" lines.
func (u Usecase) Transcript(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitles: %w", err)
	}
	subs, err := subtitles.ReadFile(path, b)
	if err != nil {
		return nil, err
	}
	return subtitles.RawTranscript(subs), nil
}

// MediaTranscript extracts the selected subtitle stream into outDir first.
func (u Usecase) MediaTranscript(ctx context.Context, media string, sel ports.StreamSelector, outDir string) ([]string, error) {
	srt := filepath.Join(outDir, BaseName(media)+".srt")
	if err := u.d.Subtitles.ExtractSubtitles(ctx, media, sel, srt); err != nil {
		return nil, err
	}
	return u.Transcript(srt)
}

// IsSubtitleFile reports whether path can be read without extraction.
func IsSubtitleFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt", ".vtt", ".ass", ".ssa":
		return true
	}
	return false
}
