package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/logger"
	"github.com/charlesng35/omnikit/pkg/metrics"
	"github.com/charlesng35/omnikit/pkg/response"
)

// RateLimit allows maxRequests per client IP and route template in each window. When
// the store fails the request is let through and the failure logged.
func RateLimit(store RateStore, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		count, resetIn, err := store.Increment(c.Request.Context(), c.ClientIP()+"|"+route, window)
		if err != nil {
			logger.WithModule("http").Warn("rate limit store failed", zap.Error(err))
			c.Next()
			return
		}

		resetSeconds := int(resetIn.Round(time.Second) / time.Second)
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(maxRequests-count, 0)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSeconds))

		if count > maxRequests {
			metrics.RateLimited.WithLabelValues(route).Inc()
			c.Header("Retry-After", strconv.Itoa(max(resetSeconds, 1)))
			response.Error(c, apperrors.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()
	}
}
