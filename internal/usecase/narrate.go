package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/progress"
)

const (
	DefaultChunkSize     = 500
	DefaultFallbackLines = 20
)

type NarrateInput struct {
	Lines     []string
	Language  string
	ChunkSize int
	// Concurrency bounds in-flight requests; RatePerMinute <= 0 disables
	// the limiter.
	Concurrency   int
	RatePerMinute float64
	// FallbackLines is how many top-scoring lines replace a failed chunk.
	FallbackLines int
}

type NarrateResult struct {
	Lines        []string
	FailedChunks []int
}

// Narrate condenses a raw transcript chunk by chunk. A chunk the narrator
// cannot handle is replaced by its best dialogue lines so the output keeps
// covering the whole film.
func (u Usecase) Narrate(ctx context.Context, in NarrateInput, rep *progress.Reporter) (NarrateResult, error) {
	if u.d.Narrator == nil {
		return NarrateResult{}, errors.New("narration is not configured")
	}
	size := in.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	conc := in.Concurrency
	if conc <= 0 {
		conc = 1
	}
	fallback := in.FallbackLines
	if fallback <= 0 {
		fallback = DefaultFallbackLines
	}
	limit := rate.Inf
	if in.RatePerMinute > 0 {
		limit = rate.Limit(in.RatePerMinute / 60)
	}
	limiter := rate.NewLimiter(limit, 1)

	chunks := chunkLines(in.Lines, size)
	out := make([][]string, len(chunks))
	failed := make([]bool, len(chunks))
	var (
		mu   sync.Mutex
		done int
	)

	rep.Stage("narrate")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conc)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
			start := time.Now()
			lines, err := u.d.Narrator.Narrate(gctx, chunk, in.Language)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				u.d.Log.Warn("narration chunk failed, using top lines",
					"chunk", fmt.Sprintf("%d/%d", i+1, len(chunks)), "err", err)
				lines = highlights.Pick(chunk, fallback)
				failed[i] = true
			} else {
				u.d.Log.Info("narration chunk done",
					"chunk", fmt.Sprintf("%d/%d", i+1, len(chunks)),
					"lines", len(lines),
					"elapsed", time.Since(start).Round(time.Millisecond))
			}
			out[i] = lines
			mu.Lock()
			done++
			rep.Update(float64(done) / float64(len(chunks)))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return NarrateResult{}, err
	}

	var res NarrateResult
	for i := range chunks {
		res.Lines = append(res.Lines, out[i]...)
		if failed[i] {
			res.FailedChunks = append(res.FailedChunks, i)
		}
	}
	return res, nil
}

func chunkLines(lines []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(lines); i += size {
		j := i + size
		if j > len(lines) {
			j = len(lines)
		}
		out = append(out, lines[i:j])
	}
	return out
}
