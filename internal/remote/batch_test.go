package remote

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/invsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFetcher fails each id a configured number of times before
// succeeding, and records every attempt.
type countingFetcher struct {
	mu       sync.Mutex
	failures map[int64]int
	attempts map[int64]int
}

func newCountingFetcher(failures map[int64]int) *countingFetcher {
	return &countingFetcher{failures: failures, attempts: make(map[int64]int)}
}

func (f *countingFetcher) fetch(ctx context.Context, id int64) (*domain.RecordDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[id]++
	if f.attempts[id] <= f.failures[id] {
		return nil, errors.New("transient upstream error")
	}
	return &domain.RecordDetail{ID: id}, nil
}

func fastFetcher(f *countingFetcher) *DetailFetcher[*domain.RecordDetail] {
	return NewDetailFetcher(f.fetch).WithRetries(3, time.Millisecond)
}

func resultIDs(result BatchResult[*domain.RecordDetail]) []int64 {
	ids := make([]int64, 0, len(result.Results))
	for _, d := range result.Results {
		ids = append(ids, d.ID)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

func TestDetailFetcherRetriesThenSucceeds(t *testing.T) {
	f := newCountingFetcher(map[int64]int{7: 2})

	detail, err := fastFetcher(f).Fetch(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), detail.ID)
	assert.Equal(t, 3, f.attempts[7])
}

func TestDetailFetcherExhaustsToNotFound(t *testing.T) {
	f := newCountingFetcher(map[int64]int{7: 99})

	_, err := fastFetcher(f).Fetch(context.Background(), 7)
	assert.ErrorIs(t, err, ErrDetailNotFound)
	assert.Equal(t, 3, f.attempts[7])
}

func TestDetailFetcherStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewDetailFetcher(func(ctx context.Context, id int64) (*domain.RecordDetail, error) {
		return nil, ctx.Err()
	}).WithRetries(3, time.Millisecond)

	_, err := f.Fetch(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchRunnerCollectsAll(t *testing.T) {
	f := newCountingFetcher(nil)
	runner := NewBatchRunner(fastFetcher(f), 3).WithRetryPassDelay(0)

	ids := []int64{1, 2, 3, 4, 5, 6, 7}
	result, err := runner.Run(context.Background(), ids, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, ids, resultIDs(result))
}

// A record that exhausts its first-pass retries gets one more full round in
// the sequential pass.
func TestBatchRunnerRetryPassRecovers(t *testing.T) {
	f := newCountingFetcher(map[int64]int{2: 4}) // fails pass one, succeeds in pass two
	runner := NewBatchRunner(fastFetcher(f), 2).WithRetryPassDelay(0)

	result, err := runner.Run(context.Background(), []int64{1, 2, 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, []int64{1, 2, 3}, resultIDs(result))
	assert.Equal(t, 5, f.attempts[2])
}

func TestBatchRunnerSurfacesShortfall(t *testing.T) {
	f := newCountingFetcher(map[int64]int{2: 99, 4: 99})
	runner := NewBatchRunner(fastFetcher(f), 2).WithRetryPassDelay(0)

	result, err := runner.Run(context.Background(), []int64{1, 2, 3, 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, []int64{1, 3}, resultIDs(result))
}

func TestBatchRunnerProgressPerBatch(t *testing.T) {
	f := newCountingFetcher(nil)
	runner := NewBatchRunner(fastFetcher(f), 2).WithRetryPassDelay(0)

	var calls [][2]int
	_, err := runner.Run(context.Background(), []int64{1, 2, 3, 4, 5}, func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{2, 5}, {4, 5}, {5, 5}}, calls)
}

func TestBatchRunnerEmptyInput(t *testing.T) {
	f := newCountingFetcher(nil)
	runner := NewBatchRunner(fastFetcher(f), 2)

	result, err := runner.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Results)
	assert.Equal(t, 0, result.Failed)
}
