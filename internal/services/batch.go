package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchConcurrency = 3
	DefaultBatchPacing      = 100 * time.Millisecond
)

// RunBatched executes tasks in consecutive chunks of size concurrency.
//
// All tasks in a chunk run concurrently and the chunk is awaited in full
// before the next one starts, with pacing between chunks. Results are
// returned in input order. A task that panics leaves the zero value in its
// slot and does not disturb its siblings.
//
// Cancelling ctx stops scheduling further chunks; the partial results are
// returned together with ctx.Err().
func RunBatched[T any](
	ctx context.Context,
	tasks []func(context.Context) T,
	concurrency int,
	pacing time.Duration,
) ([]T, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]T, len(tasks))

	for start := 0; start < len(tasks); start += concurrency {
		if start > 0 && pacing > 0 {
			timer := time.NewTimer(pacing)
			select {
			case <-ctx.Done():
				timer.Stop()
				return results, ctx.Err()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		end := min(start+concurrency, len(tasks))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				defer func() {
					if p := recover(); p != nil {
						log.Error().Interface("panic", p).Int("task", i).Msg("batched task panicked")
					}
				}()
				results[i] = tasks[i](ctx)
				return nil
			})
		}
		_ = g.Wait()
	}

	return results, nil
}
