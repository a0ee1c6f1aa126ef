package api

import (
	"errors"
	"net/http"
	"time"

	"journal-backend/internal/middleware"
	"journal-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// SuccessResponse represents a successful API response
type SuccessResponse struct {
	Success  bool             `json:"success"`
	Data     interface{}      `json:"data"`
	Metadata ResponseMetadata `json:"metadata"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Success  bool             `json:"success"`
	Error    ErrorDetail      `json:"error"`
	Metadata ResponseMetadata `json:"metadata"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseMetadata represents response metadata
type ResponseMetadata struct {
	Timestamp string `json:"timestamp"`
	TraceID   string `json:"trace_id,omitempty"`
}

// CreateSuccessResponse creates a success response
func CreateSuccessResponse(data interface{}, traceID string) SuccessResponse {
	return SuccessResponse{
		Success: true,
		Data:    data,
		Metadata: ResponseMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			TraceID:   traceID,
		},
	}
}

// CreateErrorResponse creates an error response
func CreateErrorResponse(code, message, details, traceID string) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
		Metadata: ResponseMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			TraceID:   traceID,
		},
	}
}

// LinkErrorResponse is the flat error body of the link endpoints, which are
// called by other trading systems rather than the journal UI.
type LinkErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func getTraceID(c *gin.Context) string {
	return c.GetString("request_id")
}

// statusForKind maps a service error kind to an HTTP status.
func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindInvalidState, services.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// classify returns the status, code and client-safe message for err.
// Unclassified errors never leak their text.
func classify(err error) (int, string, string) {
	var se *services.Error
	if errors.As(err, &se) {
		return statusForKind(se.Kind), se.Code, se.Message
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
}

// respondError writes err in the standard envelope.
func respondError(c *gin.Context, err error) {
	status, code, message := classify(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, CreateErrorResponse(code, message, "", getTraceID(c)))
}

func respondBadRequest(c *gin.Context, code, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.JSON(http.StatusBadRequest, CreateErrorResponse(code, message, details, getTraceID(c)))
}

// callerFromContext builds the service caller from the authenticated
// request. An unauthenticated request yields the zero Caller.
func callerFromContext(c *gin.Context) services.Caller {
	userID, _ := middleware.GetUserID(c)
	role, _ := middleware.GetRole(c)
	return services.Caller{UserID: userID, Role: role}
}
