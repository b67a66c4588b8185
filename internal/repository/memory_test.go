package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/andresuchdata/invsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryJobLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySyncRepository()

	job := &domain.SyncJobRecord{
		ID:        "job-1",
		Domain:    domain.DomainSales,
		Trigger:   domain.TriggerManual,
		Status:    domain.JobRunning,
		StartedAt: time.Now(),
	}
	require.NoError(t, repo.InsertJob(ctx, job))

	done := time.Now()
	job.Status = domain.JobSuccess
	job.CompletedAt = &done
	require.NoError(t, repo.UpdateJob(ctx, job))

	jobs, err := repo.RecentJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobSuccess, jobs[0].Status)
}

func TestMemoryRepositoryRecentJobsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySyncRepository()

	base := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.InsertJob(ctx, &domain.SyncJobRecord{
			ID:        fmt.Sprintf("job-%d", i),
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	jobs, err := repo.RecentJobs(ctx, 3)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "job-4", jobs[0].ID)
	assert.Equal(t, "job-2", jobs[2].ID)
}

func TestMemoryRepositoryPruneKeepsNewest(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySyncRepository()

	base := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		require.NoError(t, repo.InsertJob(ctx, &domain.SyncJobRecord{
			ID:        fmt.Sprintf("job-%d", i),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	require.NoError(t, repo.PruneJobs(ctx, 4))

	jobs, err := repo.RecentJobs(ctx, HistoryLimit)
	require.NoError(t, err)
	require.Len(t, jobs, 4)
	assert.Equal(t, "job-9", jobs[0].ID)
	assert.Equal(t, "job-6", jobs[3].ID)
}

func TestMemoryRepositorySchedule(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySyncRepository()

	// A never-saved schedule reads back as a disabled default.
	cfg, err := repo.GetSchedule(ctx)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)

	saved := &domain.SchedulerConfig{
		Enabled:  true,
		CronExpr: "0 6 * * *",
		BranchID: 7,
		FromDate: "2025-01-01",
	}
	require.NoError(t, repo.SaveSchedule(ctx, saved))

	// Mutating the caller's copy must not leak into the stored one.
	saved.CronExpr = "changed"

	cfg, err = repo.GetSchedule(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "0 6 * * *", cfg.CronExpr)
	assert.Equal(t, int64(7), cfg.BranchID)
}
