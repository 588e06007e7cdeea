package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/metrics"
	"github.com/yukikurage/taskflow-api/internal/ratelimit"
)

// RateLimit allows at most limit requests per window from each client IP on the route.
// Limiter failures let the request through.
func RateLimit(limiter ratelimit.Limiter, m *metrics.Metrics, name string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			apierrors.Respond(c, apierrors.Forbidden("Unable to determine client IP address"))
			return
		}

		result, err := limiter.Allow(c.Request.Context(), name+":"+ip, limit, window)
		if err != nil {
			slog.Warn("rate limiter unavailable", "route", name, "error", err)
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)
		if !result.Allowed {
			if m != nil {
				m.RateLimited.WithLabelValues(name).Inc()
			}
			retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			apierrors.Respond(c, apierrors.TooManyRequests(""))
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, result *ratelimit.Result) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
