package server

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/forPelevin/reelcut/internal/progress"
)

const streamPing = 30 * time.Second

// streamProgress sends snapshots of one job until it finishes or the
// client goes away.
func (s *Server) streamProgress(c *websocket.Conn) {
	defer c.Close()
	id := c.Params("id")

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if live, ok := s.tracker.Get(id); !ok || live.UpdatedAt.IsZero() {
		// Not started in this process yet, or finished before a restart.
		snap, err := s.snapshot(context.Background(), id)
		if err != nil {
			return
		}
		if err := c.WriteJSON(snap); err != nil || !snap.Active {
			return
		}
	}
	snaps, cancel := s.tracker.Subscribe(id)
	defer func() {
		cancel()
		s.tracker.Forget(id)
	}()
	if live, _ := s.tracker.Get(id); live.UpdatedAt.IsZero() {
		// The job may have finished and been forgotten before Subscribe.
		snap, err := s.snapshot(context.Background(), id)
		if err != nil {
			return
		}
		if !snap.Active {
			_ = c.WriteJSON(snap)
			return
		}
	}
	err := pump(snaps, gone, streamPing, func(snap progress.Snapshot) error {
		return c.WriteJSON(snap)
	}, func() error {
		return c.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
	})
	if err != nil {
		s.log.Debug("progress stream closed", "job_id", id, "error", err)
	}
}

// pump forwards snapshots to send until one is inactive or done closes.
func pump(snaps <-chan progress.Snapshot, done <-chan struct{}, pingEvery time.Duration, send func(progress.Snapshot) error, ping func() error) error {
	t := time.NewTicker(pingEvery)
	defer t.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-t.C:
			if err := ping(); err != nil {
				return err
			}
		case snap := <-snaps:
			if err := send(snap); err != nil {
				return err
			}
			if !snap.Active {
				return nil
			}
		}
	}
}
