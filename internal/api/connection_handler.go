package api

import (
	"net/http"
	"strconv"

	"journal-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ConnectionHandler handles connection and connected app endpoints
type ConnectionHandler struct {
	sync     services.SyncService
	registry services.TrustRegistry
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(sync services.SyncService, registry services.TrustRegistry) *ConnectionHandler {
	return &ConnectionHandler{sync: sync, registry: registry}
}

type SyncRequest struct {
	ConnectionID string `json:"connectionId"`
}

type SyncResponse struct {
	Status       string `json:"status"`
	ConnectionID string `json:"connectionId"`
}

// Sync records a manual sync of one of the user's connections
// @Summary Sync connection
// @Tags Connections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /connections/sync [post]
func (h *ConnectionHandler) Sync(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", "Invalid request format", err)
		return
	}

	var connectionID uuid.UUID
	if req.ConnectionID != "" {
		id, err := uuid.Parse(req.ConnectionID)
		if err != nil {
			respondBadRequest(c, "INVALID_CONNECTION_ID", "Invalid connection ID format", err)
			return
		}
		connectionID = id
	}

	result, err := h.sync.Sync(c.Request.Context(), connectionID, callerFromContext(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SyncResponse{Status: result.Status, ConnectionID: result.ConnectionID.String()})
}

// ListConnections lists the user's connections
// @Summary List connections
// @Tags Connections
// @Produce json
// @Security BearerAuth
// @Router /connections [get]
func (h *ConnectionHandler) ListConnections(c *gin.Context) {
	conns, err := h.sync.ListConnections(c.Request.Context(), callerFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(conns, getTraceID(c)))
}

// SyncHistory returns the most recent sync events of a connection, newest first
// @Summary Connection sync history
// @Tags Connections
// @Produce json
// @Security BearerAuth
// @Param id path string true "Connection ID"
// @Param limit query int false "Maximum events returned"
// @Router /connections/{id}/sync-events [get]
func (h *ConnectionHandler) SyncHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_CONNECTION_ID", "Invalid connection ID format", err)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondBadRequest(c, "INVALID_LIMIT", "limit must be a non-negative integer", err)
			return
		}
	}

	events, err := h.sync.History(c.Request.Context(), id, callerFromContext(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(events, getTraceID(c)))
}

// ListConnectedApps lists the user's connected apps
// @Summary List connected apps
// @Tags Connections
// @Produce json
// @Security BearerAuth
// @Router /connected-apps [get]
func (h *ConnectionHandler) ListConnectedApps(c *gin.Context) {
	apps, err := h.registry.List(c.Request.Context(), callerFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]interface{}, 0, len(apps))
	for _, app := range apps {
		out = append(out, app.ToResponse())
	}
	c.JSON(http.StatusOK, CreateSuccessResponse(out, getTraceID(c)))
}

// GetConnectedApp returns one connected app
// @Summary Get connected app
// @Tags Connections
// @Produce json
// @Security BearerAuth
// @Param id path string true "Connected app ID"
// @Router /connected-apps/{id} [get]
func (h *ConnectionHandler) GetConnectedApp(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_APP_ID", "Invalid connected app ID format", err)
		return
	}

	app, err := h.registry.Get(c.Request.Context(), callerFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(app.ToResponse(), getTraceID(c)))
}

// RevokeConnectedApp revokes a connected app; its events are rejected from
// then on
// @Summary Revoke connected app
// @Tags Connections
// @Produce json
// @Security BearerAuth
// @Param id path string true "Connected app ID"
// @Router /connected-apps/{id} [delete]
func (h *ConnectionHandler) RevokeConnectedApp(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_APP_ID", "Invalid connected app ID format", err)
		return
	}

	app, err := h.registry.Revoke(c.Request.Context(), callerFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(app.ToResponse(), getTraceID(c)))
}
