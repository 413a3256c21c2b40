package config

import (
	"fmt"
	"os"
	"strings"
)

// applyEnv lets secrets and the workspace root come from the environment.
// File values win for everything except the API key, which the file
// usually leaves empty.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("REELCUT_ROOT"); ok && strings.TrimSpace(v) != "" {
		c.Paths.Root = v
	}
	if c.Narration.APIKey == "" {
		c.Narration.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if v := os.Getenv("OPENROUTER_MODEL"); v != "" && c.Narration.Model == "" {
		c.Narration.Model = v
	}
	if v := os.Getenv("OPENROUTER_BASE_URL"); v != "" && c.Narration.BaseURL == "" {
		c.Narration.BaseURL = v
	}
	if v := os.Getenv("OPENROUTER_ALLOWED_HOSTS"); v != "" && len(c.Narration.AllowedHosts) == 0 {
		c.Narration.AllowedHosts = strings.Split(v, ",")
	}
}

func (c *Config) normalize() error {
	var err error
	if strings.TrimSpace(c.Paths.Root) == "" {
		c.Paths.Root = defaultRoot
	}
	if c.Paths.Root, err = expandPath(strings.TrimSpace(c.Paths.Root)); err != nil {
		return fmt.Errorf("paths.root: %w", err)
	}
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = "ffmpeg"
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = "ffprobe"
	}
	c.Clips.Policy = strings.ToLower(strings.TrimSpace(c.Clips.Policy))
	c.Transform.Selection = strings.ToLower(strings.TrimSpace(c.Transform.Selection))
	for i, r := range c.Transform.Recipes {
		c.Transform.Recipes[i] = strings.TrimSpace(r)
	}
	c.Output.Container = strings.TrimPrefix(strings.TrimSpace(c.Output.Container), ".")
	if c.Output.Container == "" {
		c.Output.Container = "mp4"
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	if c.Server.Workers <= 0 {
		c.Server.Workers = defaultWorkers
	}
	c.Narration.BaseURL = strings.TrimSpace(c.Narration.BaseURL)
	c.Narration.Model = strings.TrimSpace(c.Narration.Model)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	return nil
}
