// internal/repository/memory.go
package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/andresuchdata/invsync/internal/domain"
)

// MemorySyncRepository keeps history and schedule in process memory. It backs
// database-less runs (one-off CLI syncs) and tests.
type MemorySyncRepository struct {
	mu       sync.RWMutex
	jobs     map[string]domain.SyncJobRecord
	schedule *domain.SchedulerConfig
}

func NewMemorySyncRepository() *MemorySyncRepository {
	return &MemorySyncRepository{
		jobs: make(map[string]domain.SyncJobRecord),
	}
}

func (r *MemorySyncRepository) InsertJob(ctx context.Context, job *domain.SyncJobRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *MemorySyncRepository) UpdateJob(ctx context.Context, job *domain.SyncJobRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *MemorySyncRepository) RecentJobs(ctx context.Context, limit int) ([]domain.SyncJobRecord, error) {
	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]domain.SyncJobRecord, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.After(jobs[j].StartedAt)
	})
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (r *MemorySyncRepository) PruneJobs(ctx context.Context, keep int) error {
	if keep <= 0 {
		keep = HistoryLimit
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.jobs) <= keep {
		return nil
	}

	jobs := make([]domain.SyncJobRecord, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.After(jobs[j].StartedAt)
	})
	for _, job := range jobs[keep:] {
		delete(r.jobs, job.ID)
	}
	return nil
}

func (r *MemorySyncRepository) GetSchedule(ctx context.Context) (*domain.SchedulerConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.schedule == nil {
		return &domain.SchedulerConfig{Enabled: false}, nil
	}
	cp := *r.schedule
	return &cp, nil
}

func (r *MemorySyncRepository) SaveSchedule(ctx context.Context, cfg *domain.SchedulerConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *cfg
	r.schedule = &cp
	return nil
}

var _ SyncRepository = (*MemorySyncRepository)(nil)
