package server

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/forPelevin/reelcut/internal/domain/timestamps"
	"github.com/forPelevin/reelcut/internal/jobs"
	"github.com/forPelevin/reelcut/internal/pipeline"
	"github.com/forPelevin/reelcut/internal/progress"
	"github.com/forPelevin/reelcut/internal/types"
	"github.com/forPelevin/reelcut/internal/workspace"
)

// apiError is an error with an HTTP status and a stable kind.
type apiError struct {
	status int
	kind   string
	err    error
}

func (e *apiError) Error() string { return e.err.Error() }
func (e *apiError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &apiError{status: fiber.StatusBadRequest, kind: "bad_request", err: fmt.Errorf(format, args...)}
}

// StatusForKind maps an error kind onto an HTTP status.
func StatusForKind(kind string) int {
	switch kind {
	case "no_valid_timestamps", "window_out_of_range", "no_subtitle_stream":
		return fiber.StatusUnprocessableEntity
	case "source_media_missing", "not_found":
		return fiber.StatusNotFound
	case "bad_request":
		return fiber.StatusBadRequest
	case "queue_full":
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var (
		ae  *apiError
		fe  *fiber.Error
		out = fiber.Map{"error": err.Error()}
	)
	status := fiber.StatusInternalServerError
	switch {
	case errors.As(err, &ae):
		status, out["error_kind"] = ae.status, ae.kind
	case errors.As(err, &fe):
		status = fe.Code
	case errors.Is(err, jobs.ErrNotFound), errors.Is(err, workspace.ErrNotExist), errors.Is(err, workspace.ErrInvalidID):
		status, out["error_kind"] = fiber.StatusNotFound, "not_found"
	case errors.Is(err, workspace.ErrInvalidName):
		status, out["error_kind"] = fiber.StatusBadRequest, "bad_request"
	default:
		kind := types.Kind(err)
		status, out["error_kind"] = StatusForKind(kind), kind
	}
	if status >= 500 {
		s.log.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(out)
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "pending": s.queue.Pending()})
}

func (s *Server) uploadMedia(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest("multipart field %q is required", "file")
	}
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	id, path, err := s.ws.SaveMedia(fh.Filename, f)
	if err != nil {
		return err
	}
	s.log.Info("media uploaded", "media_id", id, "size", fh.Size)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"media_id": id, "name": filepath.Base(path)})
}

type splitBody struct {
	MediaID string `json:"media_id" form:"media_id"`
	Parts   int    `json:"parts" form:"parts"`
	Clean   bool   `json:"clean" form:"clean"`
}

func (s *Server) submitSplit(c *fiber.Ctx) error {
	var body splitBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest("decode body: %v", err)
	}
	media, err := s.media(body.MediaID)
	if err != nil {
		return err
	}
	if body.Parts == 0 {
		body.Parts = s.cfg.Subtitles.Parts
	}
	if err := s.cfg.CheckParts(body.Parts); err != nil {
		return badRequest("%v", err)
	}
	return s.submit(c, pipeline.KindSplit, media, func(id, dir string) pipeline.Task {
		req := pipeline.SplitRequest{
			JobID:    id,
			Media:    media,
			OutDir:   dir,
			Parts:    body.Parts,
			Clean:    body.Clean,
			Selector: s.cfg.StreamSelector(),
		}
		return pipeline.Task{ID: id, Run: func(ctx context.Context) error {
			_, err := s.runner.Split(ctx, req)
			return err
		}}
	})
}

type trimBody struct {
	MediaID        string `json:"media_id" form:"media_id"`
	TranscriptText string `json:"transcript_text" form:"transcript_text"`
	GroupSize      *int   `json:"group_size" form:"group_size"`
	Archive        *bool  `json:"archive" form:"archive"`
}

func (s *Server) submitTrim(c *fiber.Ctx) error {
	var body trimBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest("decode body: %v", err)
	}
	media, err := s.media(body.MediaID)
	if err != nil {
		return err
	}
	if _, err := timestamps.ParseText(body.TranscriptText); err != nil {
		return &apiError{status: fiber.StatusUnprocessableEntity, kind: types.Kind(err), err: err}
	}
	groupSize, archive := s.cfg.Clips.GroupSize, s.cfg.Clips.Archive
	if body.GroupSize != nil {
		if *body.GroupSize < 0 {
			return badRequest("group_size must be >= 0")
		}
		groupSize = *body.GroupSize
	}
	if body.Archive != nil {
		archive = *body.Archive
	}
	params, err := s.cfg.ClipParams()
	if err != nil {
		return err
	}
	return s.submit(c, pipeline.KindTrim, media, func(id, dir string) pipeline.Task {
		return pipeline.Task{ID: id, Run: func(ctx context.Context) error {
			// A fresh selector per job keeps seeded selection reproducible.
			sel, err := s.cfg.Selector()
			if err != nil {
				return err
			}
			_, err = s.runner.Trim(ctx, pipeline.TrimRequest{
				JobID:        id,
				Media:        media,
				Transcript:   body.TranscriptText,
				OutDir:       dir,
				Clips:        params,
				Selector:     sel,
				Profile:      s.cfg.Profile(),
				GroupSize:    groupSize,
				Archive:      archive,
				DeleteSource: s.cfg.Cleanup.DeleteSource,
			})
			return err
		}}
	})
}

// submit allocates a job directory and record, then queues the task.
func (s *Server) submit(c *fiber.Ctx, kind, media string, build func(id, dir string) pipeline.Task) error {
	id, dir, err := s.ws.NewJob()
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	job, err := s.store.Create(ctx, jobs.Job{ID: id, Kind: kind, Media: media})
	if err != nil {
		_ = s.ws.RemoveJob(id)
		return err
	}
	task := build(id, dir)
	task.OnPanic = func(perr error) {
		s.tracker.Attach(id).Fail(perr)
		if err := s.store.Fail(context.Background(), id, perr); err != nil {
			s.log.Warn("record panic", "job_id", id, "error", err)
		}
	}
	if err := s.queue.Submit(task); err != nil {
		_ = s.store.Fail(ctx, id, err)
		return &apiError{status: fiber.StatusServiceUnavailable, kind: "queue_full", err: err}
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID, "status": job.Status})
}

func (s *Server) media(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", badRequest("media_id is required")
	}
	p, err := s.ws.Media(id)
	if err != nil {
		return "", &apiError{status: fiber.StatusNotFound, kind: "source_media_missing", err: err}
	}
	return p, nil
}

func (s *Server) listJobs(c *fiber.Ctx) error {
	list, err := s.store.List(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	if list == nil {
		list = []jobs.Job{}
	}
	return c.JSON(list)
}

func (s *Server) getJob(c *fiber.Ctx) error {
	j, err := s.store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(j)
}

func (s *Server) getProgress(c *fiber.Ctx) error {
	snap, err := s.snapshot(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

// snapshot prefers live progress and falls back to the stored job, which
// covers jobs finished before a restart.
func (s *Server) snapshot(ctx context.Context, id string) (progress.Snapshot, error) {
	if snap, ok := s.tracker.Get(id); ok && !snap.UpdatedAt.IsZero() {
		return snap, nil
	}
	j, err := s.store.Get(ctx, id)
	if err != nil {
		return progress.Snapshot{}, err
	}
	return progress.Snapshot{
		JobID:     j.ID,
		Percent:   j.Percent,
		Stage:     string(j.Status),
		Active:    !j.Status.Terminal(),
		Err:       j.Error,
		UpdatedAt: j.UpdatedAt,
	}, nil
}

func (s *Server) downloadFile(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := s.store.Get(c.UserContext(), id); err != nil {
		return err
	}
	p, err := s.ws.File(id, c.Params("name"))
	if err != nil {
		return err
	}
	return c.Download(p, filepath.Base(p))
}

func (s *Server) checkJob(c *fiber.Ctx) error {
	if _, err := s.store.Get(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.Next()
}
