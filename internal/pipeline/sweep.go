package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/forPelevin/reelcut/internal/jobs"
	"github.com/forPelevin/reelcut/internal/workspace"
)

type SweepResult struct {
	Jobs  int
	Media int
}

// Sweep removes finished jobs, their directories and uploads older than
// maxAge. Job directories with no store record are removed on age alone.
// Uploads referenced by a queued or running job are kept.
func Sweep(ctx context.Context, store *jobs.Store, ws *workspace.Workspace, maxAge time.Duration, now time.Time, log *slog.Logger) (SweepResult, error) {
	var res SweepResult
	if maxAge <= 0 {
		return res, nil
	}
	cutoff := now.Add(-maxAge)

	finished, err := store.FinishedBefore(ctx, cutoff)
	if err != nil {
		return res, err
	}
	for _, j := range finished {
		if err := ws.RemoveJob(j.ID); err != nil {
			log.Warn("sweep job dir", "job_id", j.ID, "error", err)
			continue
		}
		if err := store.Delete(ctx, j.ID); err != nil {
			return res, err
		}
		res.Jobs++
	}

	dirs, err := ws.StaleJobs(cutoff)
	if err != nil {
		return res, err
	}
	for _, id := range dirs {
		if _, err := store.Get(ctx, id); !errors.Is(err, jobs.ErrNotFound) {
			continue
		}
		if err := ws.RemoveJob(id); err != nil {
			log.Warn("sweep orphan dir", "job_id", id, "error", err)
			continue
		}
		res.Jobs++
	}

	media, err := ws.StaleMedia(cutoff)
	if err != nil {
		return res, err
	}
	inUse, err := activeMedia(ctx, store, ws)
	if err != nil {
		return res, err
	}
	for _, id := range media {
		if inUse[id] {
			log.Debug("sweep skips media in use", "media_id", id)
			continue
		}
		if err := ws.RemoveMedia(id); err != nil {
			return res, fmt.Errorf("sweep media: %w", err)
		}
		res.Media++
	}
	if res.Jobs+res.Media > 0 {
		log.Info("sweep complete", "jobs", res.Jobs, "media", res.Media, "max_age", maxAge)
	}
	return res, nil
}

// activeMedia is the set of upload IDs that unfinished jobs still read.
func activeMedia(ctx context.Context, store *jobs.Store, ws *workspace.Workspace) (map[string]bool, error) {
	paths, err := store.ActiveMedia(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(paths))
	for _, p := range paths {
		if id, ok := ws.MediaID(p); ok {
			ids[id] = true
		}
	}
	return ids, nil
}
