package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// DependencyCheck reports whether a dependency is usable. A nil check means
// the dependency is disabled.
type DependencyCheck func(ctx context.Context) error

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checks  map[string]DependencyCheck
	version string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, checks map[string]DependencyCheck) *HealthHandler {
	return &HealthHandler{checks: checks, version: version}
}

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the overall health response
type HealthResponse struct {
	Status       string                  `json:"status"`
	Timestamp    string                  `json:"timestamp"`
	Version      string                  `json:"version"`
	Dependencies map[string]HealthStatus `json:"dependencies"`
}

// LivenessProbe handles Kubernetes liveness probe
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Router /health/live [get]
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, CreateSuccessResponse(gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, getTraceID(c)))
}

// ReadinessProbe handles Kubernetes readiness probe
// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Router /health/ready [get]
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	dependencies := make(map[string]HealthStatus, len(names))
	healthy := true
	for _, name := range names {
		check := h.checks[name]
		if check == nil {
			dependencies[name] = HealthStatus{Status: "disabled"}
			continue
		}
		if err := check(ctx); err != nil {
			healthy = false
			dependencies[name] = HealthStatus{Status: "unhealthy", Message: err.Error()}
			continue
		}
		dependencies[name] = HealthStatus{Status: "healthy"}
	}

	response := HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Version:      h.version,
		Dependencies: dependencies,
	}
	if !healthy {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, SuccessResponse{
			Success:  false,
			Data:     response,
			Metadata: ResponseMetadata{Timestamp: response.Timestamp, TraceID: getTraceID(c)},
		})
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(response, getTraceID(c)))
}
