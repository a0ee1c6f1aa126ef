package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"journal-backend/pkg/security"

	"github.com/gin-gonic/gin"
	logger "github.com/sirupsen/logrus"
)

// KeyFunc derives the rate limit bucket for a request.
type KeyFunc func(*gin.Context) string

// DefaultKeyFunc generates a rate limit key based on IP address
func DefaultKeyFunc(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// UserKeyFunc generates a rate limit key based on user ID
func UserKeyFunc(c *gin.Context) string {
	if userID, exists := GetUserID(c); exists {
		return fmt.Sprintf("user:%s", userID.String())
	}
	return DefaultKeyFunc(c)
}

// RateLimitMiddleware rejects requests once the bucket chosen by keyFunc is
// exhausted. If the limiter itself fails the request is let through.
func RateLimitMiddleware(limiter security.RateLimiter, rule security.RateLimitRule, keyFunc KeyFunc) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = DefaultKeyFunc
	}
	log := logger.WithField("component", "rate_limit")

	return func(c *gin.Context) {
		result, err := limiter.Allow(c.Request.Context(), keyFunc(c), rule)
		if err != nil {
			log.WithError(err).WithField("rule", rule.Name).Warn("Rate limiter unavailable")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Window", strconv.Itoa(int(rule.Window.Seconds())))

		if !result.Allowed {
			retry := int(result.RetryAfter.Round(time.Second).Seconds())
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			abortWithError(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded. Please try again later.")
			return
		}

		c.Next()
	}
}
