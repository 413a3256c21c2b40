package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/forPelevin/reelcut/internal/config"
	"github.com/forPelevin/reelcut/internal/jobs"
	"github.com/forPelevin/reelcut/internal/logging"
	"github.com/forPelevin/reelcut/internal/pipeline"
	"github.com/forPelevin/reelcut/internal/progress"
	"github.com/forPelevin/reelcut/internal/usecase"
	"github.com/forPelevin/reelcut/internal/workspace"
)

type Deps struct {
	Config    *config.Config
	Workspace *workspace.Workspace
	Store     *jobs.Store
	UC        usecase.Usecase
	Log       *slog.Logger
}

// Server exposes job submission and progress over HTTP. Jobs run on the
// server's context, so a client disconnecting does not cancel its job.
type Server struct {
	cfg     *config.Config
	ws      *workspace.Workspace
	store   *jobs.Store
	tracker *progress.Tracker
	queue   *pipeline.Queue
	runner  *pipeline.Runner
	log     *slog.Logger
	app     *fiber.App
	now     func() time.Time
}

func New(d Deps) (*Server, error) {
	if d.Config == nil || d.Workspace == nil || d.Store == nil {
		return nil, errors.New("server: config, workspace and store are required")
	}
	log := d.Log
	if log == nil {
		log = logging.Discard()
	}
	tracker := progress.NewTracker()
	s := &Server{
		cfg:     d.Config,
		ws:      d.Workspace,
		store:   d.Store,
		tracker: tracker,
		queue:   pipeline.NewQueue(d.Config.Server.Workers, pipeline.DefaultQueueCapacity, log),
		runner:  &pipeline.Runner{UC: d.UC, Store: d.Store, Tracker: tracker, Log: log},
		log:     log,
		now:     time.Now,
	}
	s.app = fiber.New(fiber.Config{
		BodyLimit:             d.Config.Server.MaxUploadMB * 1024 * 1024,
		ErrorHandler:          s.handleError,
		DisableStartupMessage: true,
	})
	s.routes()
	return s, nil
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(s.accessLog)

	s.app.Get("/health", s.health)

	api := s.app.Group("/api")
	api.Post("/media", s.uploadMedia)
	api.Post("/jobs/split", s.submitSplit)
	api.Post("/jobs/trim", s.submitTrim)
	api.Get("/jobs", s.listJobs)
	api.Get("/jobs/:id", s.getJob)
	api.Get("/jobs/:id/progress", s.getProgress)
	api.Get("/jobs/:id/files/:name", s.downloadFile)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws/jobs/:id", s.checkJob, websocket.New(s.streamProgress))
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("http request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start).Round(time.Millisecond))
	return err
}

// RunQueue processes submitted jobs until ctx is cancelled.
func (s *Server) RunQueue(ctx context.Context) error {
	return s.queue.Run(ctx)
}

// Sweep removes jobs and uploads past the retention window.
func (s *Server) Sweep(ctx context.Context) (pipeline.SweepResult, error) {
	maxAge := time.Duration(s.cfg.Cleanup.RetentionHours) * time.Hour
	return pipeline.Sweep(ctx, s.store, s.ws, maxAge, s.now(), s.log)
}

func (s *Server) runSweeper(ctx context.Context) error {
	interval := time.Duration(s.cfg.Cleanup.SweepIntervalMinutes) * time.Minute
	if interval <= 0 || s.cfg.Cleanup.RetentionHours <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (s *Server) listen(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- s.app.Listen(s.cfg.Server.Bind) }()
	s.log.Info("server listening", "addr", s.cfg.Server.Bind, "root", s.ws.Root(), "workers", s.cfg.Server.Workers)
	select {
	case err := <-errc:
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Bind, err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
