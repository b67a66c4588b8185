// internal/sync/scheduler.go
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/andresuchdata/invsync/internal/domain"
	"github.com/andresuchdata/invsync/internal/repository"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ValidateCron checks a 5-field cron expression.
func ValidateCron(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Scheduler drives periodic syncs from a persisted cron configuration.
// A scheduled fire runs the sales pipeline and then the sales-order sync;
// if a job is already in flight the fire is skipped, not queued.
type Scheduler struct {
	coord *Coordinator
	repo  repository.SyncRepository
	cron  *cron.Cron

	mu      sync.Mutex
	entryID cron.EntryID
	current domain.SchedulerConfig
}

func NewScheduler(coord *Coordinator, repo repository.SyncRepository) *Scheduler {
	return &Scheduler{
		coord: coord,
		repo:  repo,
		cron:  cron.New(),
	}
}

// Start loads the persisted schedule, registers it, and starts the cron
// loop. A missing or disabled schedule still starts the loop so a later
// Apply can enable it without a restart.
func (s *Scheduler) Start(ctx context.Context) error {
	cfg, err := s.repo.GetSchedule(ctx)
	if err != nil {
		return fmt.Errorf("loading scheduler config: %w", err)
	}
	if err := s.register(*cfg); err != nil {
		return err
	}
	s.cron.Start()

	if cfg.Enabled {
		log.Info().Str("cron", cfg.CronExpr).Msg("sync scheduler started")
	} else {
		log.Info().Msg("sync scheduler started (disabled)")
	}
	return nil
}

// Stop halts the cron loop. Jobs already running are left to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Current returns the active schedule configuration.
func (s *Scheduler) Current() domain.SchedulerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Apply persists a new schedule and swaps the cron entry without
// restarting the loop.
func (s *Scheduler) Apply(ctx context.Context, cfg domain.SchedulerConfig) error {
	if cfg.Enabled {
		if err := ValidateCron(cfg.CronExpr); err != nil {
			return err
		}
	}
	if err := s.repo.SaveSchedule(ctx, &cfg); err != nil {
		return fmt.Errorf("saving scheduler config: %w", err)
	}
	return s.register(cfg)
}

func (s *Scheduler) register(cfg domain.SchedulerConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
	s.current = cfg

	if !cfg.Enabled {
		return nil
	}

	id, err := s.cron.AddFunc(cfg.CronExpr, func() { s.fire(cfg) })
	if err != nil {
		return fmt.Errorf("registering cron entry: %w", err)
	}
	s.entryID = id
	return nil
}

func (s *Scheduler) fire(cfg domain.SchedulerConfig) {
	ctx := context.Background()

	for _, dom := range []domain.SyncDomain{domain.DomainSales, domain.DomainSO} {
		err := s.coord.Sync(ctx, Request{
			Domain:   dom,
			BranchID: cfg.BranchID,
			FromDate: cfg.FromDate,
			Trigger:  domain.TriggerScheduled,
		})
		switch {
		case err == nil:
		case errors.Is(err, ErrSyncInProgress):
			log.Info().Str("domain", string(dom)).Msg("scheduled sync skipped, job already running")
			return
		default:
			log.Error().Err(err).Str("domain", string(dom)).Msg("scheduled sync failed")
		}
	}
}
