package handlers

import (
	"errors"
	"net/http"

	"github.com/andresuchdata/invsync/internal/service"
	"github.com/gin-gonic/gin"
)

type AnalysisHandler struct {
	service *service.AnalysisService
}

func NewAnalysisHandler(service *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

// Inventory serves the full analytics report. branch_id=0 (or absent)
// means the all-branch aggregate.
func (h *AnalysisHandler) Inventory(c *gin.Context) {
	branch := parseInt64Query(c, "branch_id")

	result, err := h.service.InventoryAnalysis(c.Request.Context(), branch)
	if err != nil {
		if errors.Is(err, service.ErrNotSynced) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
