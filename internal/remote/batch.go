// internal/remote/batch.go
package remote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Default concurrency widths per domain.
const (
	BatchWidthInvoices = 20
	BatchWidthOrders   = 15
	BatchWidthStock    = 10
)

const defaultRetryPassDelay = 500 * time.Millisecond

// ProgressFunc is invoked after each completed batch with (done, total).
type ProgressFunc func(done, total int)

// BatchResult carries the union of successful fetches from both passes and
// the count of records still failing afterwards. The shortfall is surfaced,
// never thrown, so callers can proceed with partial data.
type BatchResult[T any] struct {
	Results []T
	Failed  int
}

// BatchRunner drives a DetailFetcher over many IDs: fixed-size concurrent
// batches first, then one sequential retry pass with a fixed inter-item
// delay to ease rate-limit pressure.
type BatchRunner[T any] struct {
	fetcher        *DetailFetcher[T]
	width          int
	retryPassDelay time.Duration
}

// NewBatchRunner builds a runner with the given concurrency width.
func NewBatchRunner[T any](fetcher *DetailFetcher[T], width int) *BatchRunner[T] {
	if width < 1 {
		width = 1
	}
	return &BatchRunner[T]{
		fetcher:        fetcher,
		width:          width,
		retryPassDelay: defaultRetryPassDelay,
	}
}

// WithRetryPassDelay overrides the delay between retry-pass items.
func (r *BatchRunner[T]) WithRetryPassDelay(d time.Duration) *BatchRunner[T] {
	if d >= 0 {
		r.retryPassDelay = d
	}
	return r
}

// Run processes ids batch by batch. Batch N+1 never starts before batch N
// has fully resolved; completion order inside a batch is unconstrained.
func (r *BatchRunner[T]) Run(ctx context.Context, ids []int64, progress ProgressFunc) (BatchResult[T], error) {
	var (
		result BatchResult[T]
		mu     sync.Mutex
		soft   []int64
		done   int
	)
	total := len(ids)

	for start := 0; start < total; start += r.width {
		end := start + r.width
		if end > total {
			end = total
		}
		batch := ids[start:end]

		g, gctx := errgroup.WithContext(ctx)
		for _, id := range batch {
			id := id
			g.Go(func() error {
				detail, err := r.fetcher.Fetch(gctx, id)
				if err != nil {
					if errors.Is(err, ErrDetailNotFound) {
						mu.Lock()
						soft = append(soft, id)
						mu.Unlock()
						return nil
					}
					return err
				}
				mu.Lock()
				result.Results = append(result.Results, detail)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return result, err
		}

		done += len(batch)
		if progress != nil {
			progress(done, total)
		}
	}

	if len(soft) == 0 {
		return result, nil
	}

	log.Info().Int("count", len(soft)).Msg("retrying soft-failed records sequentially")

	// Second pass: sequential, spaced out, each retried up to maxRetries
	// again inside the fetcher.
	for i, id := range soft {
		if i > 0 {
			if err := sleepCtx(ctx, r.retryPassDelay); err != nil {
				result.Failed += len(soft) - i
				return result, err
			}
		}
		detail, err := r.fetcher.Fetch(ctx, id)
		if err != nil {
			if errors.Is(err, ErrDetailNotFound) {
				result.Failed++
				continue
			}
			result.Failed += len(soft) - i
			return result, err
		}
		result.Results = append(result.Results, detail)
	}

	if result.Failed > 0 {
		log.Warn().
			Int("failed", result.Failed).
			Int("total", total).
			Msg("records still failing after retry pass, continuing with partial data")
	}

	return result, nil
}
