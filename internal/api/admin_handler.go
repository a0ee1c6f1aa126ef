package api

import (
	"context"
	"net/http"

	"journal-backend/internal/scheduler"

	"github.com/gin-gonic/gin"
)

// Maintenance runs the background jobs on demand.
type Maintenance interface {
	Sweep(ctx context.Context) (*scheduler.SweepResult, error)
	CollectGarbage(ctx context.Context) error
}

// AdminHandler exposes maintenance jobs to admin users
type AdminHandler struct {
	maintenance Maintenance
}

func NewAdminHandler(maintenance Maintenance) *AdminHandler {
	return &AdminHandler{maintenance: maintenance}
}

// Sweep reconciles every copy configuration with pending records
// @Summary Run reconciliation sweep
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Router /admin/sweep [post]
func (h *AdminHandler) Sweep(c *gin.Context) {
	result, err := h.maintenance.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CreateSuccessResponse(result, getTraceID(c)))
}

// CollectGarbage purges dead link tokens and old copy event records
// @Summary Run retention cleanup
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Router /admin/gc [post]
func (h *AdminHandler) CollectGarbage(c *gin.Context) {
	if err := h.maintenance.CollectGarbage(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CreateSuccessResponse(gin.H{"status": "completed"}, getTraceID(c)))
}
