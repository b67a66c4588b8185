package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/andresuchdata/invsync/internal/domain"
	syncsvc "github.com/andresuchdata/invsync/internal/sync"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type SyncHandler struct {
	coord     *syncsvc.Coordinator
	scheduler *syncsvc.Scheduler
}

func NewSyncHandler(coord *syncsvc.Coordinator, scheduler *syncsvc.Scheduler) *SyncHandler {
	return &SyncHandler{coord: coord, scheduler: scheduler}
}

// Trigger starts a sync job for the :domain path segment and returns
// immediately; progress is observable via Status. A job already in flight
// yields 409.
func (h *SyncHandler) Trigger(c *gin.Context) {
	dom := c.Param("domain")
	if !domain.ValidSyncDomain(dom) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown sync domain: " + dom})
		return
	}

	req := syncsvc.Request{
		Domain:   domain.SyncDomain(dom),
		Force:    c.Query("force") == "1" || c.Query("force") == "true",
		BranchID: parseInt64Query(c, "branch_id"),
		FromDate: c.Query("from_date"),
		Trigger:  domain.TriggerManual,
	}

	if h.coord.Status().Running {
		c.JSON(http.StatusConflict, gin.H{"error": syncsvc.ErrSyncInProgress.Error()})
		return
	}

	// The request context dies with the response; the job gets its own.
	go func() {
		if err := h.coord.Sync(context.Background(), req); err != nil {
			if errors.Is(err, syncsvc.ErrSyncInProgress) {
				log.Info().Str("domain", dom).Msg("sync trigger lost the race to a running job")
				return
			}
			log.Error().Err(err).Str("domain", dom).Msg("triggered sync failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"status": "started",
		"domain": dom,
		"force":  req.Force,
	})
}

func (h *SyncHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.coord.Status())
}

func (h *SyncHandler) History(c *gin.Context) {
	limit := 20
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && v > 0 {
		limit = v
	}

	jobs, err := h.coord.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if jobs == nil {
		jobs = make([]domain.SyncJobRecord, 0)
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *SyncHandler) GetSchedule(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Current())
}

type scheduleRequest struct {
	Enabled  bool   `json:"enabled"`
	CronExpr string `json:"cron_expr"`
	BranchID int64  `json:"branch_id"`
	FromDate string `json:"from_date"`
}

func (h *SyncHandler) PutSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	cfg := domain.SchedulerConfig{
		Enabled:  req.Enabled,
		CronExpr: req.CronExpr,
		BranchID: req.BranchID,
		FromDate: req.FromDate,
	}
	if err := h.scheduler.Apply(c.Request.Context(), cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.scheduler.Current())
}

func parseInt64Query(c *gin.Context, name string) int64 {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
