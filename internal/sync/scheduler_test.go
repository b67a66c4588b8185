package sync

import (
	"context"
	"testing"

	"github.com/andresuchdata/invsync/internal/cache"
	"github.com/andresuchdata/invsync/internal/domain"
	"github.com/andresuchdata/invsync/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCron(t *testing.T) {
	assert.NoError(t, ValidateCron("0 6 * * *"))
	assert.NoError(t, ValidateCron("*/15 * * * *"))

	assert.Error(t, ValidateCron(""))
	assert.Error(t, ValidateCron("every morning"))
	assert.Error(t, ValidateCron("0 6 * *")) // 4 fields
}

func TestSchedulerApplyPersistsAndSwaps(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemorySyncRepository()
	coord := NewCoordinator(newStubAPI(), cache.NewMemoryStore(), repo, nil, testConfig())

	sched := NewScheduler(coord, repo)
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop()

	assert.False(t, sched.Current().Enabled)

	cfg := domain.SchedulerConfig{Enabled: true, CronExpr: "0 6 * * *", BranchID: 7, FromDate: "2025-01-01"}
	require.NoError(t, sched.Apply(ctx, cfg))
	assert.Equal(t, cfg, sched.Current())

	// Persisted, so a restart would pick it up.
	stored, err := repo.GetSchedule(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, *stored)

	// Disabling unregisters the entry without an error.
	cfg.Enabled = false
	require.NoError(t, sched.Apply(ctx, cfg))
	assert.False(t, sched.Current().Enabled)
}

func TestSchedulerApplyRejectsBadCron(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemorySyncRepository()
	coord := NewCoordinator(newStubAPI(), cache.NewMemoryStore(), repo, nil, testConfig())
	sched := NewScheduler(coord, repo)

	err := sched.Apply(ctx, domain.SchedulerConfig{Enabled: true, CronExpr: "whenever"})
	require.Error(t, err)

	// The broken config must not have been persisted.
	stored, _ := repo.GetSchedule(ctx)
	assert.False(t, stored.Enabled)
}
