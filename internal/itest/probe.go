//go:build integration

package itest

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type probed struct {
	duration float64
	codecs   map[string][]string // codec_type -> codec names
	width    int
	height   int
}

func probeMedia(path string) (probed, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	b, err := cmd.Output()
	if err != nil {
		return probed{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	var raw struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
			CodecName string `json:"codec_name"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return probed{}, fmt.Errorf("decode ffprobe output: %w", err)
	}
	p := probed{codecs: map[string][]string{}}
	s := strings.TrimSpace(raw.Format.Duration)
	if p.duration, err = strconv.ParseFloat(s, 64); err != nil {
		return probed{}, fmt.Errorf("parse duration %q: %w", s, err)
	}
	for _, st := range raw.Streams {
		p.codecs[st.CodecType] = append(p.codecs[st.CodecType], st.CodecName)
		if st.CodecType == "video" && p.width == 0 {
			p.width, p.height = st.Width, st.Height
		}
	}
	return p, nil
}
