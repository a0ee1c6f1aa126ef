package api

import (
	"io"
	"net/http"

	"journal-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderAppID     = "X-App-Id"
	HeaderSignature = "X-Signature"
	HeaderEventID   = "X-Event-Id"

	maxCopyEventBytes = 64 << 10
)

// CopyEventHandler accepts signed copy events from connected apps over HTTP
type CopyEventHandler struct {
	ingestion services.IngestionService
}

// NewCopyEventHandler creates a new copy event handler
func NewCopyEventHandler(ingestion services.IngestionService) *CopyEventHandler {
	return &CopyEventHandler{ingestion: ingestion}
}

type CopyEventResponse struct {
	Duplicate     bool   `json:"duplicate"`
	CopiedTradeID string `json:"copied_trade_id,omitempty"`
}

// Ingest verifies and stores one copy event. The body is the signed payload
// exactly as sent.
// @Summary Ingest copy event
// @Tags Copy Events
// @Accept json
// @Produce json
// @Router /copy-events [post]
func (h *CopyEventHandler) Ingest(c *gin.Context) {
	appID, err := uuid.Parse(c.GetHeader(HeaderAppID))
	if err != nil {
		respondBadRequest(c, "INVALID_APP_ID", "X-App-Id header must be a connected app ID", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCopyEventBytes+1))
	if err != nil {
		respondBadRequest(c, "INVALID_REQUEST", "Failed to read request body", err)
		return
	}
	if len(body) > maxCopyEventBytes {
		c.JSON(http.StatusRequestEntityTooLarge, CreateErrorResponse("PAYLOAD_TOO_LARGE", "Copy event is too large", "", getTraceID(c)))
		return
	}

	result, err := h.ingestion.IngestCopyEvent(c.Request.Context(), "http", services.CopyEvent{
		EventID:   c.GetHeader(HeaderEventID),
		AppID:     appID,
		Signature: c.GetHeader(HeaderSignature),
		Payload:   body,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := CopyEventResponse{Duplicate: result.Duplicate}
	status := http.StatusOK
	if !result.Duplicate {
		resp.CopiedTradeID = result.CopiedTradeID.String()
		status = http.StatusAccepted
	}
	c.JSON(status, CreateSuccessResponse(resp, getTraceID(c)))
}
