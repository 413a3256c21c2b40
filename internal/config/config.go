package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths holds the workspace root. Jobs, the job database and the server
// lock all live under it.
type Paths struct {
	Root string `toml:"root"`
}

type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

type Subtitles struct {
	Parts    int `toml:"parts"`
	MaxParts int `toml:"max_parts"`
	// StreamIndex < 0 means pick by codec.
	StreamIndex int    `toml:"stream_index"`
	Codec       string `toml:"codec"`
	AnyCodec    bool   `toml:"any_codec"`
}

type Clips struct {
	StartBias float64 `toml:"start_bias"`
	Duration  float64 `toml:"duration"`
	Policy    string  `toml:"window_policy"`
	GroupSize int     `toml:"group_size"`
	Archive   bool    `toml:"archive"`
}

type Transform struct {
	SpeedFactor float64  `toml:"speed_factor"`
	FadeIn      float64  `toml:"fade_in"`
	FadeOut     float64  `toml:"fade_out"`
	Selection   string   `toml:"selection"`
	Recipes     []string `toml:"recipes"`
	Seed        int64    `toml:"seed"`
}

type Output struct {
	TargetHeight int     `toml:"target_height"`
	FPS          float64 `toml:"fps"`
	VideoCodec   string  `toml:"video_codec"`
	Profile      string  `toml:"profile"`
	Level        string  `toml:"level"`
	PixelFormat  string  `toml:"pixel_format"`
	Threads      int     `toml:"threads"`
	IncludeAudio bool    `toml:"include_audio"`
	AudioCodec   string  `toml:"audio_codec"`
	Container    string  `toml:"container"`
}

type Server struct {
	Bind        string `toml:"bind"`
	Workers     int    `toml:"workers"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

type Cleanup struct {
	RetentionHours       int  `toml:"retention_hours"`
	SweepIntervalMinutes int  `toml:"sweep_interval_minutes"`
	DeleteSource         bool `toml:"delete_source"`
}

type Narration struct {
	APIKey        string   `toml:"api_key"`
	Model         string   `toml:"model"`
	BaseURL       string   `toml:"base_url"`
	AllowedHosts  []string `toml:"allowed_hosts"`
	Language      string   `toml:"language"`
	ChunkSize     int      `toml:"chunk_size"`
	Concurrency   int      `toml:"concurrency"`
	RatePerMinute float64  `toml:"rate_per_minute"`
	FallbackLines int      `toml:"fallback_lines"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Paths     Paths     `toml:"paths"`
	Tools     Tools     `toml:"tools"`
	Subtitles Subtitles `toml:"subtitles"`
	Clips     Clips     `toml:"clips"`
	Transform Transform `toml:"transform"`
	Output    Output    `toml:"output"`
	Server    Server    `toml:"server"`
	Cleanup   Cleanup   `toml:"cleanup"`
	Narration Narration `toml:"narration"`
	Logging   Logging   `toml:"logging"`
}

func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelcut/config.toml")
}

// Load reads path (or the default location when path is empty and a file
// exists there), applies environment overrides, then normalizes and
// validates. The returned path is empty when only defaults were used.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}
	if exists {
		b, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", fmt.Errorf("open config: %w", err)
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return nil, "", fmt.Errorf("parse config %s: %w", resolved, err)
		}
	} else {
		resolved = ""
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			return "", false, fmt.Errorf("config %s: %w", expanded, err)
		}
		return expanded, true, nil
	}
	def, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(def); err == nil && !info.IsDir() {
		return def, true, nil
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", false, fmt.Errorf("stat %s: %w", def, err)
	}
	return def, false, nil
}

// EnsureDirectories creates the workspace layout.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.JobsDir(), 0o755); err != nil {
		return fmt.Errorf("create jobs dir: %w", err)
	}
	return nil
}

func (c *Config) JobsDir() string  { return filepath.Join(c.Paths.Root, "jobs") }
func (c *Config) DBPath() string   { return filepath.Join(c.Paths.Root, "reelcut.db") }
func (c *Config) LockPath() string { return filepath.Join(c.Paths.Root, "reelcut.lock") }

// CreateSample writes the commented sample config to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(p string) (string, error) {
	if p == "" {
		return p, nil
	}
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if p == "~" {
			p = home
		} else if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
			p = filepath.Join(home, p[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}

// ExpandPath applies the config path rules (~ expansion, absolute paths).
func ExpandPath(p string) (string, error) { return expandPath(p) }
