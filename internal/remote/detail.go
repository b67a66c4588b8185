// internal/remote/detail.go
package remote

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrDetailNotFound is the soft-failure sentinel returned once a detail fetch
// has exhausted its retries. Callers must treat it as a skipped record, never
// as a batch-fatal error.
var ErrDetailNotFound = errors.New("record detail not found")

const defaultMaxRetries = 3

// DetailFetcher fetches one record's detail with per-call retry and linear
// backoff (attempt x BackoffStep).
type DetailFetcher[T any] struct {
	fetch       func(ctx context.Context, id int64) (T, error)
	maxRetries  int
	backoffStep time.Duration
}

// NewDetailFetcher wraps a raw fetch function with retry semantics.
func NewDetailFetcher[T any](fetch func(ctx context.Context, id int64) (T, error)) *DetailFetcher[T] {
	return &DetailFetcher[T]{
		fetch:       fetch,
		maxRetries:  defaultMaxRetries,
		backoffStep: time.Second,
	}
}

// WithRetries overrides the retry count and backoff step. Zero values keep
// the defaults.
func (f *DetailFetcher[T]) WithRetries(maxRetries int, backoffStep time.Duration) *DetailFetcher[T] {
	if maxRetries > 0 {
		f.maxRetries = maxRetries
	}
	if backoffStep > 0 {
		f.backoffStep = backoffStep
	}
	return f
}

// Fetch retries the underlying call up to maxRetries times. When the final
// attempt fails it returns ErrDetailNotFound; only context cancellation is
// propagated as a hard error.
func (f *DetailFetcher[T]) Fetch(ctx context.Context, id int64) (T, error) {
	var zero T

	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		detail, err := f.fetch(ctx, id)
		if err == nil {
			return detail, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}

		log.Debug().Err(err).
			Int64("id", id).
			Int("attempt", attempt).
			Int("max_retries", f.maxRetries).
			Msg("detail fetch attempt failed")

		if attempt < f.maxRetries {
			if err := sleepCtx(ctx, time.Duration(attempt)*f.backoffStep); err != nil {
				return zero, err
			}
		}
	}

	return zero, ErrDetailNotFound
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
