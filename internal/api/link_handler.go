package api

import (
	"net/http"
	"time"

	"journal-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// LinkHandler handles the cross-app link handshake
type LinkHandler struct {
	links services.LinkService
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(links services.LinkService) *LinkHandler {
	return &LinkHandler{links: links}
}

type IssueTokenRequest struct {
	TargetApp string `json:"target_app"`
}

type IssueTokenResponse struct {
	LinkToken        string    `json:"linkToken"`
	ExpiresAt        time.Time `json:"expiresAt"`
	ExpiresInSeconds int       `json:"expiresInSeconds"`
}

type ConsumeTokenRequest struct {
	LinkToken    string `json:"linkToken"`
	SourceSystem string `json:"sourceSystem"`
	SourceURL    string `json:"sourceUrl"`
}

type ConsumeTokenResponse struct {
	JournalUserID       string `json:"journalUserId"`
	SharedSigningSecret string `json:"sharedSigningSecret"`
}

// IssueToken creates a link token for the authenticated user
// @Summary Issue link token
// @Tags Links
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /links/tokens [post]
func (h *LinkHandler) IssueToken(c *gin.Context) {
	caller := callerFromContext(c)

	var req IssueTokenRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "INVALID_REQUEST", "Invalid request format", err)
			return
		}
	}

	issued, err := h.links.Issue(c.Request.Context(), caller.UserID, req.TargetApp)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, IssueTokenResponse{
		LinkToken:        issued.Token,
		ExpiresAt:        issued.ExpiresAt,
		ExpiresInSeconds: issued.ExpiresInSeconds,
	})
}

// ConsumeToken redeems a link token for a shared signing secret. It is
// called service-to-service without a user session.
// @Summary Consume link token
// @Tags Links
// @Accept json
// @Produce json
// @Router /links/consume [post]
func (h *LinkHandler) ConsumeToken(c *gin.Context) {
	var req ConsumeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, LinkErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	result, err := h.links.Consume(c.Request.Context(), services.ConsumeRequest{
		Token:     req.LinkToken,
		AppLabel:  req.SourceSystem,
		SourceURL: req.SourceURL,
	})
	if err != nil {
		status, code, message := classify(err)
		if status == http.StatusInternalServerError {
			_ = c.Error(err)
		}
		c.JSON(status, LinkErrorResponse{Error: message, Code: code})
		return
	}

	c.JSON(http.StatusOK, ConsumeTokenResponse{
		JournalUserID:       result.OwnerID.String(),
		SharedSigningSecret: result.SharedSecret,
	})
}
