package api

import (
	"net/http"

	"journal-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconciliationHandler handles reconciliation endpoints
type ReconciliationHandler struct {
	reconciler services.ReconciliationService
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(reconciler services.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciler: reconciler}
}

type ReconcileRequest struct {
	CopyParamsID string `json:"copyParamsId"`
}

type ReconcileResponse struct {
	Status string `json:"status"`
	services.ReconcileSummary
}

// Reconcile runs one reconciliation batch for a copy configuration
// @Summary Reconcile copied trades
// @Tags Reconciliation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /reconciliations [post]
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", "Invalid request format", err)
		return
	}

	var copyParamsID uuid.UUID
	if req.CopyParamsID != "" {
		id, err := uuid.Parse(req.CopyParamsID)
		if err != nil {
			respondBadRequest(c, "INVALID_COPY_PARAMS_ID", "Invalid copy params ID format", err)
			return
		}
		copyParamsID = id
	}

	summary, err := h.reconciler.Reconcile(c.Request.Context(), copyParamsID, callerFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ReconcileResponse{Status: "success", ReconcileSummary: *summary})
}

// Requeue sends a mismatch or missing copied trade back to pending
// @Summary Requeue copied trade
// @Tags Reconciliation
// @Produce json
// @Security BearerAuth
// @Param id path string true "Copied trade ID"
// @Router /copied-trades/{id}/requeue [post]
func (h *ReconciliationHandler) Requeue(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_COPIED_TRADE_ID", "Invalid copied trade ID format", err)
		return
	}

	record, err := h.reconciler.Requeue(c.Request.Context(), id, callerFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(record, getTraceID(c)))
}
