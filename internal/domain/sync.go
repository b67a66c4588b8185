// internal/domain/sync.go
package domain

import "time"

// SyncDomain identifies one of the synchronized data domains.
type SyncDomain string

const (
	DomainSales SyncDomain = "sales"
	DomainStock SyncDomain = "stock"
	DomainPO    SyncDomain = "po"
	DomainSO    SyncDomain = "so"
)

// ValidSyncDomain reports whether s names a known sync domain.
func ValidSyncDomain(s string) bool {
	switch SyncDomain(s) {
	case DomainSales, DomainStock, DomainPO, DomainSO:
		return true
	}
	return false
}

// JobStatus is the lifecycle status of a sync job.
type JobStatus string

const (
	JobRunning  JobStatus = "RUNNING"
	JobRetrying JobStatus = "RETRYING"
	JobSuccess  JobStatus = "SUCCESS"
	JobFailed   JobStatus = "FAILED"
)

// SyncTrigger records what started a job.
type SyncTrigger string

const (
	TriggerScheduled SyncTrigger = "scheduled"
	TriggerManual    SyncTrigger = "manual"
)

// SyncJobRecord is one append-only job history entry. History is kept
// most-recent-first and capped to the last 50 jobs.
type SyncJobRecord struct {
	ID          string      `json:"id" db:"id"`
	Domain      SyncDomain  `json:"domain" db:"domain"`
	Trigger     SyncTrigger `json:"trigger" db:"trigger"`
	Status      JobStatus   `json:"status" db:"status"`
	Message     string      `json:"message" db:"message"`
	StartedAt   time.Time   `json:"started_at" db:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
}

// JobState is a point-in-time snapshot of the coordinator, safe to hand to
// API callers while a job runs.
type JobState struct {
	Running   bool       `json:"running"`
	Domain    SyncDomain `json:"domain,omitempty"`
	Phase     string     `json:"phase,omitempty"`
	Done      int        `json:"done"`
	Total     int        `json:"total"`
	StartedAt time.Time  `json:"started_at,omitempty"`
	ElapsedMS int64      `json:"elapsed_ms"`
}

// SchedulerConfig is the single persisted scheduling configuration row.
type SchedulerConfig struct {
	Enabled  bool   `json:"enabled" db:"enabled"`
	CronExpr string `json:"cron_expression" db:"cron_expr"`
	BranchID int64  `json:"branch_id,omitempty" db:"branch_id"`
	FromDate string `json:"from_date" db:"from_date"`
}
