package workers

import (
	"context"
	"sync"

	"veritas/internal/domain/claim"
	"veritas/pkg/errors"
	"veritas/pkg/logger"
)

// batchLimit caps how many claims one worker iteration pulls from storage
const batchLimit = 100

// processClaims runs fn over a claim batch with bounded parallelism. Each
// claim is isolated: a failure or panic on one claim never blocks the rest of
// the batch. Stale-state skips are expected under concurrent workers and are
// not counted as errors.
func processClaims(ctx context.Context, log *logger.Logger, claims []*claim.Claim, concurrency int, fn func(context.Context, *claim.Claim) error) (processed, failed int) {
	if concurrency < 1 {
		concurrency = 1
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for _, c := range claims {
		select {
		case <-ctx.Done():
			wg.Wait()
			return processed, failed
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(c *claim.Claim) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					log.Errorw("Claim processing panicked", "claim_id", c.ID, "panic", r)
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}()

			err := fn(ctx, c)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				processed++
			case errors.Is(err, errors.ErrStaleState):
				// Another worker got there first
			default:
				failed++
			}
		}(c)
	}

	wg.Wait()
	return processed, failed
}
