package config

import (
	"errors"
	"fmt"

	"github.com/forPelevin/reelcut/internal/domain/clips"
	"github.com/forPelevin/reelcut/internal/domain/geometry"
	"github.com/forPelevin/reelcut/internal/domain/transform"
	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/ports/adapters/openrouter"
)

func (c *Config) Validate() error {
	var errs []error
	if c.Subtitles.MaxParts <= 0 {
		errs = append(errs, fmt.Errorf("subtitles.max_parts must be > 0, got %d", c.Subtitles.MaxParts))
	}
	if err := c.CheckParts(c.Subtitles.Parts); err != nil {
		errs = append(errs, fmt.Errorf("subtitles.%w", err))
	}
	if _, err := c.ClipParams(); err != nil {
		errs = append(errs, err)
	}
	if c.Clips.Duration <= 0 {
		errs = append(errs, fmt.Errorf("clips.duration must be > 0, got %v", c.Clips.Duration))
	}
	if c.Clips.GroupSize < 0 {
		errs = append(errs, fmt.Errorf("clips.group_size must be >= 0, got %d", c.Clips.GroupSize))
	}
	if err := c.TransformParams().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("transform: %w", err))
	}
	if _, err := c.Selector(); err != nil {
		errs = append(errs, fmt.Errorf("transform: %w", err))
	}
	if c.Output.TargetHeight <= 0 || c.Output.TargetHeight%2 != 0 {
		errs = append(errs, fmt.Errorf("output.target_height must be a positive even number, got %d", c.Output.TargetHeight))
	}
	if c.Output.FPS < 0 || c.Output.Threads < 0 {
		errs = append(errs, errors.New("output.fps and output.threads must be >= 0"))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb must be > 0, got %d", c.Server.MaxUploadMB))
	}
	if c.Cleanup.RetentionHours < 0 || c.Cleanup.SweepIntervalMinutes < 0 {
		errs = append(errs, errors.New("cleanup values must be >= 0"))
	}
	if c.Narration.ChunkSize < 0 || c.Narration.Concurrency < 0 || c.Narration.RatePerMinute < 0 {
		errs = append(errs, errors.New("narration values must be >= 0"))
	}
	if err := openrouter.CheckBaseURL(c.Narration.BaseURL, c.Narration.AllowedHosts); err != nil {
		errs = append(errs, fmt.Errorf("narration: %w", err))
	}
	switch c.Logging.Format {
	case "", "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// CheckParts reports whether a split into n parts is allowed.
func (c *Config) CheckParts(n int) error {
	if n <= 0 || n > c.Subtitles.MaxParts {
		return fmt.Errorf("parts must be between 1 and %d, got %d", c.Subtitles.MaxParts, n)
	}
	return nil
}

func (c *Config) ClipParams() (clips.Params, error) {
	p, err := clips.ParsePolicy(c.Clips.Policy)
	if err != nil {
		return clips.Params{}, fmt.Errorf("clips: %w", err)
	}
	return clips.Params{StartBias: c.Clips.StartBias, ClipDuration: c.Clips.Duration, Policy: p}, nil
}

func (c *Config) TransformParams() transform.Params {
	return transform.Params{SpeedFactor: c.Transform.SpeedFactor, FadeIn: c.Transform.FadeIn, FadeOut: c.Transform.FadeOut}
}

func (c *Config) Selector() (transform.Selector, error) {
	return transform.NewSelector(c.Transform.Selection, transform.Catalog(c.TransformParams()), c.Transform.Recipes, c.Transform.Seed)
}

func (c *Config) Profile() geometry.Profile {
	return geometry.Profile{
		TargetHeight: c.Output.TargetHeight,
		FPS:          c.Output.FPS,
		VideoCodec:   c.Output.VideoCodec,
		Profile:      c.Output.Profile,
		Level:        c.Output.Level,
		PixelFormat:  c.Output.PixelFormat,
		Threads:      c.Output.Threads,
		IncludeAudio: c.Output.IncludeAudio,
		AudioCodec:   c.Output.AudioCodec,
		Container:    c.Output.Container,
	}
}

func (c *Config) StreamSelector() ports.StreamSelector {
	return ports.StreamSelector{Index: c.Subtitles.StreamIndex, Codec: c.Subtitles.Codec, AnyCodec: c.Subtitles.AnyCodec}
}
