// internal/repository/sync_repository.go
package repository

import (
	"context"

	"github.com/andresuchdata/invsync/internal/domain"
)

// HistoryLimit caps the retained sync job history.
const HistoryLimit = 50

// SyncRepository persists sync job history and the scheduler configuration.
type SyncRepository interface {
	InsertJob(ctx context.Context, job *domain.SyncJobRecord) error
	UpdateJob(ctx context.Context, job *domain.SyncJobRecord) error

	// RecentJobs returns up to limit jobs, most recent first.
	RecentJobs(ctx context.Context, limit int) ([]domain.SyncJobRecord, error)

	// PruneJobs removes history beyond the newest keep records.
	PruneJobs(ctx context.Context, keep int) error

	// GetSchedule returns the single scheduler config row, or a disabled
	// default when none has been saved yet.
	GetSchedule(ctx context.Context) (*domain.SchedulerConfig, error)
	SaveSchedule(ctx context.Context, cfg *domain.SchedulerConfig) error
}
