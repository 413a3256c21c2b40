package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/reelcut/internal/logging"
)

var ErrQueueFull = errors.New("job queue is full")

const DefaultQueueCapacity = 100

// Task is one unit of queued work.
type Task struct {
	ID  string
	Run func(ctx context.Context) error
	// OnPanic is called with the recovered value turned into an error.
	OnPanic func(err error)
}

// Queue runs tasks on a fixed number of workers. One worker serializes
// encodes, which keeps ffmpeg from competing for CPU.
type Queue struct {
	tasks   chan Task
	workers int
	log     *slog.Logger
}

func NewQueue(workers, capacity int, log *slog.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Queue{tasks: make(chan Task, capacity), workers: workers, log: log}
}

// Submit enqueues t without blocking.
func (q *Queue) Submit(t Task) error {
	select {
	case q.tasks <- t:
		q.log.Info("job enqueued", "job_id", t.ID, "pending", len(q.tasks))
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) Pending() int { return len(q.tasks) }

// Run processes tasks until ctx is cancelled. Tasks still pending at that
// point are left unrun.
func (q *Queue) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		worker := i
		g.Go(func() error {
			q.log.Debug("worker started", "worker", worker)
			for {
				select {
				case <-ctx.Done():
					return nil
				case t := <-q.tasks:
					q.exec(ctx, worker, t)
				}
			}
		})
	}
	return g.Wait()
}

func (q *Queue) exec(ctx context.Context, worker int, t Task) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("worker panic: %v", r)
			q.log.Error("job panicked", "job_id", t.ID, "worker", worker, "panic", r, "stack", string(debug.Stack()))
			if t.OnPanic != nil {
				t.OnPanic(err)
			}
		}
	}()
	if err := t.Run(ctx); err != nil {
		q.log.Debug("task returned error", "job_id", t.ID, "worker", worker, "error", err)
	}
}
