package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/reelcut/internal/config"
	"github.com/forPelevin/reelcut/internal/jobs"
	"github.com/forPelevin/reelcut/internal/logging"
	"github.com/forPelevin/reelcut/internal/usecase"
	"github.com/forPelevin/reelcut/internal/workspace"
)

var ErrRootLocked = errors.New("workspace root is locked by another server")

// Serve owns the workspace root until ctx is cancelled: it takes the root
// lock, fails jobs a previous process left unfinished, then runs the HTTP
// listener, the job queue and the retention sweeper together.
func Serve(ctx context.Context, cfg *config.Config, uc usecase.Usecase, log *slog.Logger) error {
	if log == nil {
		log = logging.Discard()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", cfg.LockPath(), err)
	}
	if !locked {
		return fmt.Errorf("%s: %w", cfg.Paths.Root, ErrRootLocked)
	}
	defer func() { _ = lock.Unlock() }()

	ws, err := workspace.New(cfg.Paths.Root)
	if err != nil {
		return err
	}
	store, err := jobs.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	if n, err := store.Interrupted(ctx); err != nil {
		return err
	} else if n > 0 {
		log.Warn("marked interrupted jobs as failed", "count", n)
	}

	srv, err := New(Deps{Config: cfg, Workspace: ws, Store: store, UC: uc, Log: log})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.RunQueue(gctx) })
	g.Go(func() error { return srv.runSweeper(gctx) })
	g.Go(func() error { return srv.listen(gctx) })
	return g.Wait()
}
