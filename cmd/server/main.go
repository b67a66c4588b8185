// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/invsync/internal/analytics"
	"github.com/andresuchdata/invsync/internal/api"
	"github.com/andresuchdata/invsync/internal/archive"
	"github.com/andresuchdata/invsync/internal/cache"
	"github.com/andresuchdata/invsync/internal/config"
	"github.com/andresuchdata/invsync/internal/remote"
	"github.com/andresuchdata/invsync/internal/repository"
	"github.com/andresuchdata/invsync/internal/repository/postgres"
	"github.com/andresuchdata/invsync/internal/service"
	syncsvc "github.com/andresuchdata/invsync/internal/sync"
	"github.com/andresuchdata/invsync/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Job history lives in Postgres when one is configured; otherwise the
	// in-memory repository keeps the server usable for local runs.
	var repo repository.SyncRepository
	if cfg.Database.Host != "" {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		if err := postgres.EnsureSchema(context.Background(), db); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
		repo = postgres.NewSyncRepository(db)
	} else {
		logger.Log.Warn().Msg("No database configured, sync history will not survive restarts")
		repo = repository.NewMemorySyncRepository()
	}

	var store cache.Store
	if cfg.Cache.Enabled {
		redisStore, err := cache.NewRedisStore(cfg.Cache)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		store = redisStore
	} else {
		logger.Log.Warn().Msg("Redis disabled, snapshots will be held in memory only")
		store = cache.NewMemoryStore()
	}

	archiver, err := archive.New(cfg.Archive)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize snapshot archive")
	}

	client := remote.NewClient(cfg.Remote)
	coordinator := syncsvc.NewCoordinator(client, store, repo, archiver, syncsvc.NewConfig(cfg.Sync))

	scheduler := syncsvc.NewScheduler(coordinator, repo)
	if err := scheduler.Start(context.Background()); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to start sync scheduler")
	}
	defer scheduler.Stop()

	engine := analytics.NewEngine(analytics.NewParams(cfg.Analytics))
	analysisService := service.NewAnalysisService(store, engine, cfg.Sync.FromDate)

	router := api.NewRouter(&api.Services{
		Coordinator:     coordinator,
		Scheduler:       scheduler,
		AnalysisService: analysisService,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
