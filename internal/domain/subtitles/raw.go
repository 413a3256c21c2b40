package subtitles

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/asticode/go-astisub"
)

// Read decodes a subtitle document; the format is picked from ext.
func Read(r io.Reader, ext string) (*astisub.Subtitles, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "vtt":
		return astisub.ReadFromWebVTT(r)
	case "ssa", "ass":
		return astisub.ReadFromSSA(r)
	default:
		return astisub.ReadFromSRT(r)
	}
}

func ReadFile(name string, b []byte) (*astisub.Subtitles, error) {
	subs, err := Read(bytes.NewReader(b), filepath.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("parse subtitles %s: %w", filepath.Base(name), err)
	}
	return subs, nil
}

// RawTranscript flattens subtitles into "HH:MM:SS,mmm - text" lines, one per
// entry. The output is valid transcript input for the trim pipeline.
func RawTranscript(subs *astisub.Subtitles) []string {
	if subs == nil {
		return nil
	}
	out := make([]string, 0, len(subs.Items))
	for _, it := range subs.Items {
		var parts []string
		for _, l := range it.Lines {
			if s := strings.TrimSpace(l.String()); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, Clock(it.StartAt)+" - "+strings.Join(parts, " "))
	}
	return out
}

// Clock formats d as HH:MM:SS,mmm.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	milli := int(d / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hs, ms, s, milli)
}
