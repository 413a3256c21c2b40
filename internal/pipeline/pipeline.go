package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/forPelevin/reelcut/internal/config"
	"github.com/forPelevin/reelcut/internal/domain/clips"
	"github.com/forPelevin/reelcut/internal/domain/geometry"
	"github.com/forPelevin/reelcut/internal/domain/transform"
	"github.com/forPelevin/reelcut/internal/jobs"
	"github.com/forPelevin/reelcut/internal/logging"
	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/reelcut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/reelcut/internal/progress"
	"github.com/forPelevin/reelcut/internal/types"
	"github.com/forPelevin/reelcut/internal/usecase"
)

const ManifestName = "manifest.json"

const (
	KindSplit = "split"
	KindTrim  = "trim"
)

// Config selects the external tools behind the ports.
type Config struct {
	FFmpegPath  string
	FFprobePath string

	OpenRouterAPIKey       string
	OpenRouterModel        string
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string

	Log *slog.Logger
}

func FromConfig(cfg *config.Config, log *slog.Logger) Config {
	return Config{
		FFmpegPath:             cfg.Tools.FFmpeg,
		FFprobePath:            cfg.Tools.FFprobe,
		OpenRouterAPIKey:       cfg.Narration.APIKey,
		OpenRouterModel:        cfg.Narration.Model,
		OpenRouterBaseURL:      cfg.Narration.BaseURL,
		OpenRouterAllowedHosts: cfg.Narration.AllowedHosts,
		Log:                    log,
	}
}

func (c Config) Validate() error {
	if c.FFmpegPath == "" || c.FFprobePath == "" {
		return errors.New("ffmpeg and ffprobe paths are required")
	}
	return openrouter.CheckBaseURL(c.OpenRouterBaseURL, c.OpenRouterAllowedHosts)
}

// NewUsecase wires the ffmpeg and OpenRouter adapters. Narration is left
// unset without an API key.
func NewUsecase(c Config) usecase.Usecase {
	v := ffmpeg.New(c.FFmpegPath, c.FFprobePath)
	deps := usecase.Deps{
		Prober:    v,
		Subtitles: v,
		Encoder:   v,
		Log:       c.Log,
	}
	if c.OpenRouterAPIKey != "" {
		deps.Narrator = openrouter.New(c.OpenRouterAPIKey, c.OpenRouterModel, c.OpenRouterBaseURL)
	}
	return usecase.New(deps)
}

type SplitRequest struct {
	JobID    string
	Media    string
	OutDir   string
	Parts    int
	Clean    bool
	Selector ports.StreamSelector
}

type TrimRequest struct {
	JobID        string
	Media        string
	Transcript   string
	OutDir       string
	Clips        clips.Params
	Selector     transform.Selector
	Profile      geometry.Profile
	GroupSize    int
	Archive      bool
	DeleteSource bool
}

// Runner executes jobs, reporting live progress to Tracker and, when Store
// is set, persisting state transitions.
type Runner struct {
	UC      usecase.Usecase
	Store   *jobs.Store
	Tracker *progress.Tracker
	Log     *slog.Logger
	Now     func() time.Time
}

func (r *Runner) Split(ctx context.Context, req SplitRequest) (types.Manifest, error) {
	return r.run(ctx, req.JobID, KindSplit, req.Media, req.OutDir, func(rep *progress.Reporter) (types.Manifest, error) {
		res, err := r.UC.Split(ctx, usecase.SplitInput{
			Media:    req.Media,
			Selector: req.Selector,
			Parts:    req.Parts,
			Clean:    req.Clean,
			OutDir:   req.OutDir,
		}, rep)
		if err != nil {
			return types.Manifest{}, err
		}
		arts := append([]types.ArtifactInfo{{Name: res.Subtitles, File: res.Subtitles}}, res.Artifacts...)
		return types.Manifest{Artifacts: arts, Sample: res.Sample}, nil
	})
}

func (r *Runner) Trim(ctx context.Context, req TrimRequest) (types.Manifest, error) {
	return r.run(ctx, req.JobID, KindTrim, req.Media, req.OutDir, func(rep *progress.Reporter) (types.Manifest, error) {
		res, err := r.UC.Trim(ctx, usecase.TrimInput{
			Media:      req.Media,
			Transcript: req.Transcript,
			Clips:      req.Clips,
			Selector:   req.Selector,
			Profile:    req.Profile,
			GroupSize:  req.GroupSize,
			Archive:    req.Archive,
			OutDir:     req.OutDir,
		}, rep)
		if err != nil {
			return types.Manifest{}, err
		}
		if req.DeleteSource {
			if err := os.Remove(req.Media); err != nil && !errors.Is(err, os.ErrNotExist) {
				r.logger().Warn("delete source failed", "job_id", req.JobID, "error", err)
			}
		}
		out := res.Output
		return types.Manifest{
			Output:    &out,
			Windows:   res.Plan.Windows,
			Dropped:   res.Plan.Dropped,
			Timelines: res.Timelines,
			Artifacts: res.Artifacts,
			Archive:   res.Archive,
		}, nil
	})
}

func (r *Runner) run(ctx context.Context, id, kind, media, outDir string, fn func(*progress.Reporter) (types.Manifest, error)) (types.Manifest, error) {
	log := r.logger().With("job_id", id, "kind", kind)
	tracker := r.Tracker
	if tracker == nil {
		tracker = progress.NewTracker()
	}

	rep := tracker.Begin(id)
	// Finished jobs leave memory once nobody watches them; the store keeps
	// their final state.
	defer tracker.Forget(id)
	if r.Store != nil {
		if err := r.Store.MarkRunning(ctx, id); err != nil {
			log.Warn("mark running", "error", err)
		}
	}
	stop := r.persist(ctx, tracker, id, log)
	defer stop()
	log.Info("job started", "media", filepath.Base(media))

	var m types.Manifest
	err := os.MkdirAll(outDir, 0o755)
	if err != nil {
		err = fmt.Errorf("create output dir: %w", err)
	} else {
		m, err = fn(rep)
	}
	if err == nil {
		m.JobID = id
		m.Kind = kind
		m.Input = filepath.Base(media)
		m.CreatedAt = r.now().UTC()
		err = writeManifest(outDir, m)
	}
	stop()

	if err != nil {
		rep.Fail(err)
		if r.Store != nil {
			if serr := r.Store.Fail(context.WithoutCancel(ctx), id, err); serr != nil {
				log.Warn("record failure", "error", serr)
			}
		}
		log.Error("job failed", "error_kind", types.Kind(err), "error", err)
		return types.Manifest{}, err
	}
	rep.Done()
	if r.Store != nil {
		if serr := r.Store.Complete(context.WithoutCancel(ctx), id, m); serr != nil {
			log.Warn("record completion", "error", serr)
		}
	}
	log.Info("job done", "artifacts", len(m.Artifacts))
	return m, nil
}

// persist copies live progress into the store until the returned func is
// called. The func is safe to call more than once.
func (r *Runner) persist(ctx context.Context, tracker *progress.Tracker, id string, log *slog.Logger) func() {
	if r.Store == nil {
		return func() {}
	}
	ch, unsubscribe := tracker.Subscribe(id)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case s := <-ch:
				if !s.Active {
					continue
				}
				if err := r.Store.Progress(ctx, id, s.Percent, s.Stage); err != nil {
					log.Debug("persist progress", "error", err)
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
			unsubscribe()
		})
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Log == nil {
		return logging.Discard()
	}
	return r.Log
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func writeManifest(dir string, m types.Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), b, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest a finished job left in dir.
func ReadManifest(dir string) (types.Manifest, error) {
	b, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return types.Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m types.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return types.Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// ensure adapters implement ports
var (
	_ ports.Prober            = (*ffmpeg.Adapter)(nil)
	_ ports.SubtitleExtractor = (*ffmpeg.Adapter)(nil)
	_ ports.Encoder           = (*ffmpeg.Adapter)(nil)
	_ ports.Narrator          = (*openrouter.Adapter)(nil)
)
