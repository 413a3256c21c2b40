package types

import "time"

// ClipWindow is a [Start, End) range in source seconds derived from one offset.
type ClipWindow struct {
	Index  int     `json:"index"`
	Offset float64 `json:"offset"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
}

func (w ClipWindow) Length() float64 { return w.End - w.Start }

type StepKind string

const (
	StepSpeed   StepKind = "speed"
	StepMirror  StepKind = "mirror"
	StepFadeIn  StepKind = "fade_in"
	StepFadeOut StepKind = "fade_out"
)

// Step is one resolved transform. Factor applies to speed steps, Duration
// (output seconds) to fades.
type Step struct {
	Kind     StepKind `json:"kind"`
	Factor   float64  `json:"factor,omitempty"`
	Duration float64  `json:"duration,omitempty"`
}

// Clip is a window with its transform chain resolved. Duration is the
// output length after any speed change.
type Clip struct {
	Index    int        `json:"index"`
	Window   ClipWindow `json:"window"`
	Recipe   string     `json:"recipe"`
	Steps    []Step     `json:"steps"`
	Duration float64    `json:"duration"`
}

// Timeline is an ordered run of clips rendered into one output file.
type Timeline struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Clips []Clip `json:"clips"`
}

type MediaInfo struct {
	Path      string
	Duration  float64
	Width     int
	Height    int
	FrameRate float64
	HasAudio  bool
	Subtitles []SubtitleStream
}

type SubtitleStream struct {
	Index    int
	Codec    string
	Language string
}

// OutputSpec carries the encoder settings for one target profile.
type OutputSpec struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	FPS          float64 `json:"fps"`
	VideoCodec   string  `json:"video_codec"`
	Profile      string  `json:"profile"`
	Level        string  `json:"level"`
	PixelFormat  string  `json:"pixel_format"`
	Threads      int     `json:"threads"`
	IncludeAudio bool    `json:"include_audio"`
	AudioCodec   string  `json:"audio_codec,omitempty"`
	Container    string  `json:"container"`
}

type Manifest struct {
	JobID     string         `json:"job_id"`
	Kind      string         `json:"kind"`
	Input     string         `json:"input"`
	CreatedAt time.Time      `json:"created_at"`
	Output    *OutputSpec    `json:"output,omitempty"`
	Windows   []ClipWindow   `json:"windows,omitempty"`
	Dropped   []ClipWindow   `json:"dropped,omitempty"`
	Timelines []Timeline     `json:"timelines,omitempty"`
	Artifacts []ArtifactInfo `json:"artifacts"`
	Archive   string         `json:"archive,omitempty"`
	Sample    string         `json:"sample,omitempty"`
}

type ArtifactInfo struct {
	Name     string  `json:"name"`
	File     string  `json:"file"`
	Duration float64 `json:"duration,omitempty"`
	Clips    int     `json:"clips,omitempty"`
}
