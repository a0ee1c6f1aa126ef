package middleware

import (
	"net/http"
	"time"

	"journal-backend/internal/metrics"

	"github.com/gin-gonic/gin"
	logger "github.com/sirupsen/logrus"
)

// LoggingMiddleware writes one structured entry per request. Health probes
// are skipped.
func LoggingMiddleware(log *logger.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health/live" || path == "/health/ready" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := logger.Fields{
			"request_id":    c.GetString("request_id"),
			"method":        c.Request.Method,
			"path":          path,
			"status":        status,
			"duration_ms":   float64(time.Since(start).Microseconds()) / 1000,
			"client_ip":     c.ClientIP(),
			"response_size": c.Writer.Size(),
		}
		if id, ok := GetUserID(c); ok {
			fields["user_id"] = id
		}
		if name, ok := GetUsername(c); ok {
			fields["username"] = name
		}
		if len(c.Errors) > 0 {
			fields["error"] = c.Errors.Last().Error()
		}

		entry := log.WithFields(fields)
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request completed")
		}
	}
}

// RecoveryMiddleware turns a handler panic into a 500 envelope.
func RecoveryMiddleware(log *logger.Entry, m *metrics.Metrics) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		m.RecordPanicRecovery("http")
		log.WithFields(logger.Fields{
			"request_id":  c.GetString("request_id"),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"panic_value": recovered,
		}).Error("Recovered from panic")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":       "INTERNAL_ERROR",
				"message":    "Internal server error",
				"request_id": c.GetString("request_id"),
			},
		})
	})
}
