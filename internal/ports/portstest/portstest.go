// Package portstest provides in-memory port implementations for tests of
// packages that sit above the usecases.
package portstest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
)

// Media fakes ffprobe, subtitle extraction and encoding. Encoded outputs
// contain the timeline name.
type Media struct {
	Info       types.MediaInfo
	ProbeErr   error
	SRT        string
	ExtractErr error
	EncodeErr  error
	// Block, when set, is received from before each encode returns.
	Block chan struct{}

	mu      sync.Mutex
	encoded []types.Timeline
}

func (m *Media) Probe(_ context.Context, media string) (types.MediaInfo, error) {
	if m.ProbeErr != nil {
		return types.MediaInfo{}, m.ProbeErr
	}
	if _, err := os.Stat(media); err != nil {
		return types.MediaInfo{}, fmt.Errorf("probe %s: %w", media, types.ErrSourceMediaMissing)
	}
	info := m.Info
	info.Path = media
	return info, nil
}

func (m *Media) ExtractSubtitles(_ context.Context, _ string, _ ports.StreamSelector, outPath string) error {
	if m.ExtractErr != nil {
		return m.ExtractErr
	}
	return os.WriteFile(outPath, []byte(m.SRT), 0o644)
}

func (m *Media) Encode(ctx context.Context, _ string, tl types.Timeline, _ types.OutputSpec, outPath string, onProgress func(float64)) error {
	if m.EncodeErr != nil {
		return &types.EncodeError{Output: outPath, Diagnostic: "fake failure", Err: m.EncodeErr}
	}
	if onProgress != nil {
		onProgress(0.5)
	}
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	m.encoded = append(m.encoded, tl)
	m.mu.Unlock()
	if onProgress != nil {
		onProgress(1)
	}
	return os.WriteFile(outPath, []byte(tl.Name), 0o644)
}

// Encoded returns the timelines encoded so far.
func (m *Media) Encoded() []types.Timeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Timeline(nil), m.encoded...)
}

// SRT renders n one-second cues.
func SRT(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%d\n00:00:%02d,000 --> 00:00:%02d,900\nline %d\n\n", i, i, i, i)
	}
	return b.String()
}

// Narrator returns each chunk unchanged, or Err.
type Narrator struct {
	Err error
}

func (n Narrator) Narrate(_ context.Context, chunk []string, _ string) ([]string, error) {
	if n.Err != nil {
		return nil, n.Err
	}
	return append([]string(nil), chunk...), nil
}

var (
	_ ports.Prober            = (*Media)(nil)
	_ ports.SubtitleExtractor = (*Media)(nil)
	_ ports.Encoder           = (*Media)(nil)
	_ ports.Narrator          = Narrator{}
)
