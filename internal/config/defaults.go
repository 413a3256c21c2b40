package config

import (
	"github.com/forPelevin/reelcut/internal/domain/clips"
	"github.com/forPelevin/reelcut/internal/domain/subtitles"
	"github.com/forPelevin/reelcut/internal/domain/transform"
)

const (
	defaultRoot          = "~/.local/share/reelcut"
	defaultBind          = "127.0.0.1:8710"
	defaultWorkers       = 1
	defaultMaxUploadMB   = 4096
	defaultRetentionH    = 72
	defaultSweepMinutes  = 30
	defaultLanguage      = "English"
	defaultChunkSize     = 500
	defaultRatePerMinute = 20
	defaultFallbackLines = 20
)

func Default() Config {
	return Config{
		Paths: Paths{Root: defaultRoot},
		Tools: Tools{FFmpeg: "ffmpeg", FFprobe: "ffprobe"},
		Subtitles: Subtitles{
			Parts:       subtitles.DefaultParts,
			MaxParts:    subtitles.DefaultMaxParts,
			StreamIndex: -1,
			Codec:       "subrip",
		},
		Clips: Clips{
			StartBias: clips.DefaultStartBias,
			Duration:  clips.DefaultClipDuration,
			Policy:    string(clips.PolicyDrop),
		},
		Transform: Transform{
			SpeedFactor: transform.DefaultSpeedFactor,
			FadeIn:      transform.DefaultFade,
			FadeOut:     transform.DefaultFade,
			Selection:   transform.ModeFixed,
			Recipes:     []string{transform.RecipeClassic},
		},
		Output: Output{
			TargetHeight: 1080,
			FPS:          30,
			VideoCodec:   "libx264",
			Profile:      "baseline",
			Level:        "3.0",
			PixelFormat:  "yuv420p",
			Threads:      4,
			AudioCodec:   "aac",
			Container:    "mp4",
		},
		Server: Server{
			Bind:        defaultBind,
			Workers:     defaultWorkers,
			MaxUploadMB: defaultMaxUploadMB,
		},
		Cleanup: Cleanup{
			RetentionHours:       defaultRetentionH,
			SweepIntervalMinutes: defaultSweepMinutes,
		},
		Narration: Narration{
			Language:      defaultLanguage,
			ChunkSize:     defaultChunkSize,
			Concurrency:   1,
			RatePerMinute: defaultRatePerMinute,
			FallbackLines: defaultFallbackLines,
		},
		Logging: Logging{Level: "info", Format: "auto"},
	}
}
