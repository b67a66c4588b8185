// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/invsync/internal/api/handlers"
	"github.com/andresuchdata/invsync/internal/api/middleware"
	"github.com/andresuchdata/invsync/internal/service"
	syncsvc "github.com/andresuchdata/invsync/internal/sync"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Coordinator     *syncsvc.Coordinator
	Scheduler       *syncsvc.Scheduler
	AnalysisService *service.AnalysisService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Coordinator != nil {
			syncHandler := handlers.NewSyncHandler(services.Coordinator, services.Scheduler)
			syncGroup := apiGroup.Group("/sync")
			{
				syncGroup.POST("/:domain", syncHandler.Trigger)
				syncGroup.GET("/status", syncHandler.Status)
				syncGroup.GET("/history", syncHandler.History)
				if services.Scheduler != nil {
					syncGroup.GET("/schedule", syncHandler.GetSchedule)
					syncGroup.PUT("/schedule", syncHandler.PutSchedule)
				}
			}
		}

		if services.AnalysisService != nil {
			analysisHandler := handlers.NewAnalysisHandler(services.AnalysisService)
			apiGroup.GET("/analytics/inventory", analysisHandler.Inventory)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
