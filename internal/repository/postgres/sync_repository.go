// internal/repository/postgres/sync_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/invsync/internal/domain"
	"github.com/andresuchdata/invsync/internal/repository"
)

const scheduleRowName = "default"

type syncRepository struct {
	db *DB
}

// NewSyncRepository builds the Postgres-backed sync repository.
func NewSyncRepository(db *DB) repository.SyncRepository {
	return &syncRepository{db: db}
}

func (r *syncRepository) InsertJob(ctx context.Context, job *domain.SyncJobRecord) error {
	query := `
		INSERT INTO sync_jobs (id, domain, trigger, status, message, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Domain, job.Trigger, job.Status, job.Message,
		job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sync job: %w", err)
	}
	return nil
}

func (r *syncRepository) UpdateJob(ctx context.Context, job *domain.SyncJobRecord) error {
	query := `
		UPDATE sync_jobs
		SET status = $2, message = $3, completed_at = $4
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Status, job.Message, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update sync job: %w", err)
	}
	return nil
}

func (r *syncRepository) RecentJobs(ctx context.Context, limit int) ([]domain.SyncJobRecord, error) {
	if limit <= 0 || limit > repository.HistoryLimit {
		limit = repository.HistoryLimit
	}

	query := `
		SELECT id, domain, trigger, status, message, started_at, completed_at
		FROM sync_jobs
		ORDER BY started_at DESC
		LIMIT $1
	`
	jobs := make([]domain.SyncJobRecord, 0, limit)
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list sync jobs: %w", err)
	}
	return jobs, nil
}

func (r *syncRepository) PruneJobs(ctx context.Context, keep int) error {
	if keep <= 0 {
		keep = repository.HistoryLimit
	}

	query := `
		DELETE FROM sync_jobs
		WHERE id NOT IN (
			SELECT id FROM sync_jobs ORDER BY started_at DESC LIMIT $1
		)
	`
	if _, err := r.db.ExecContext(ctx, query, keep); err != nil {
		return fmt.Errorf("prune sync jobs: %w", err)
	}
	return nil
}

func (r *syncRepository) GetSchedule(ctx context.Context) (*domain.SchedulerConfig, error) {
	query := `
		SELECT enabled, cron_expr, branch_id, from_date
		FROM scheduler_config
		WHERE name = $1
	`
	var cfg domain.SchedulerConfig
	err := r.db.GetContext(ctx, &cfg, query, scheduleRowName)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.SchedulerConfig{Enabled: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scheduler config: %w", err)
	}
	return &cfg, nil
}

func (r *syncRepository) SaveSchedule(ctx context.Context, cfg *domain.SchedulerConfig) error {
	query := `
		INSERT INTO scheduler_config (name, enabled, cron_expr, branch_id, from_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (name)
		DO UPDATE SET
			enabled = EXCLUDED.enabled,
			cron_expr = EXCLUDED.cron_expr,
			branch_id = EXCLUDED.branch_id,
			from_date = EXCLUDED.from_date,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		scheduleRowName, cfg.Enabled, cfg.CronExpr, cfg.BranchID, cfg.FromDate,
	)
	if err != nil {
		return fmt.Errorf("save scheduler config: %w", err)
	}
	return nil
}
