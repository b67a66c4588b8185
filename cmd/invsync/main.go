// cmd/invsync/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/andresuchdata/invsync/internal/analytics"
	"github.com/andresuchdata/invsync/internal/archive"
	"github.com/andresuchdata/invsync/internal/cache"
	"github.com/andresuchdata/invsync/internal/config"
	"github.com/andresuchdata/invsync/internal/domain"
	"github.com/andresuchdata/invsync/internal/remote"
	"github.com/andresuchdata/invsync/internal/repository"
	"github.com/andresuchdata/invsync/internal/repository/postgres"
	"github.com/andresuchdata/invsync/internal/service"
	syncsvc "github.com/andresuchdata/invsync/internal/sync"
	"github.com/andresuchdata/invsync/pkg/logger"
	"github.com/urfave/cli/v2"
)

// stack is the wired-up dependency set shared by the subcommands.
type stack struct {
	store       cache.Store
	repo        repository.SyncRepository
	coordinator *syncsvc.Coordinator
	analysis    *service.AnalysisService
	closers     []func()
}

func (s *stack) close() {
	for _, fn := range s.closers {
		fn()
	}
}

func buildStack(cfg *config.Config) (*stack, error) {
	s := &stack{}

	if cfg.Database.Host != "" {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		s.closers = append(s.closers, func() { db.Close() })
		if err := postgres.EnsureSchema(context.Background(), db); err != nil {
			return nil, err
		}
		s.repo = postgres.NewSyncRepository(db)
	} else {
		s.repo = repository.NewMemorySyncRepository()
	}

	if cfg.Cache.Enabled {
		store, err := cache.NewRedisStore(cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		s.store = store
	} else {
		s.store = cache.NewMemoryStore()
	}

	archiver, err := archive.New(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("initializing snapshot archive: %w", err)
	}

	client := remote.NewClient(cfg.Remote)
	s.coordinator = syncsvc.NewCoordinator(client, s.store, s.repo, archiver, syncsvc.NewConfig(cfg.Sync))

	engine := analytics.NewEngine(analytics.NewParams(cfg.Analytics))
	s.analysis = service.NewAnalysisService(s.store, engine, cfg.Sync.FromDate)

	return s, nil
}

func branchFlag() *cli.Int64Flag {
	return &cli.Int64Flag{
		Name:  "branch",
		Usage: "Branch ID to scope to (0 = all branches)",
	}
}

func main() {
	app := &cli.App{
		Name:  "invsync",
		Usage: "Sync transactional data and run inventory analytics",
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Run one sync job and wait for it to finish",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "domain",
						Usage: "Sync domain: sales, stock, po or so",
						Value: string(domain.DomainSales),
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Bypass the fresh-cache short circuit",
					},
					branchFlag(),
					&cli.StringFlag{
						Name:  "from-date",
						Usage: "Window start (yyyy-mm-dd), overrides SYNC_FROM_DATE",
					},
				},
				Action: runSync,
			},
			{
				Name:   "analyze",
				Usage:  "Print the inventory analysis report as JSON",
				Flags:  []cli.Flag{branchFlag()},
				Action: runAnalyze,
			},
			{
				Name:  "schedule",
				Usage: "Inspect or change the sync schedule",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Print the current schedule",
						Action: runScheduleShow,
					},
					{
						Name:  "set",
						Usage: "Persist a new schedule",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "enabled",
								Usage: "Enable scheduled syncs",
							},
							&cli.StringFlag{
								Name:  "cron",
								Usage: "5-field cron expression",
								Value: "0 6 * * *",
							},
							branchFlag(),
							&cli.StringFlag{
								Name:  "from-date",
								Usage: "Window start used by scheduled runs (yyyy-mm-dd)",
							},
						},
						Action: runScheduleSet,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("command failed")
	}
}

func runSync(c *cli.Context) error {
	dom := c.String("domain")
	if !domain.ValidSyncDomain(dom) {
		return fmt.Errorf("unknown sync domain %q", dom)
	}

	s, err := buildStack(config.Load())
	if err != nil {
		return err
	}
	defer s.close()

	return s.coordinator.Sync(c.Context, syncsvc.Request{
		Domain:   domain.SyncDomain(dom),
		BranchID: c.Int64("branch"),
		FromDate: c.String("from-date"),
		Force:    c.Bool("force"),
		Trigger:  domain.TriggerManual,
	})
}

func runAnalyze(c *cli.Context) error {
	s, err := buildStack(config.Load())
	if err != nil {
		return err
	}
	defer s.close()

	result, err := s.analysis.InventoryAnalysis(c.Context, c.Int64("branch"))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runScheduleShow(c *cli.Context) error {
	s, err := buildStack(config.Load())
	if err != nil {
		return err
	}
	defer s.close()

	cfg, err := s.repo.GetSchedule(c.Context)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

func runScheduleSet(c *cli.Context) error {
	cfg := domain.SchedulerConfig{
		Enabled:  c.Bool("enabled"),
		CronExpr: c.String("cron"),
		BranchID: c.Int64("branch"),
		FromDate: c.String("from-date"),
	}
	if cfg.Enabled {
		if err := syncsvc.ValidateCron(cfg.CronExpr); err != nil {
			return err
		}
	}

	s, err := buildStack(config.Load())
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.repo.SaveSchedule(c.Context, &cfg); err != nil {
		return err
	}
	fmt.Println("schedule saved")
	return nil
}
