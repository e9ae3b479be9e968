package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/heygw44/snapstock/pkg/metrics"
	"github.com/heygw44/snapstock/pkg/response"
	"golang.org/x/time/rate"
)

// limitKey prefers the authenticated user id (NAT-friendly) and falls back to the client IP.
func limitKey(c *gin.Context) string {
	if p, ok := Principal(c); ok {
		return "user:" + strconv.FormatInt(p.UserID, 10)
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

func rejectRateLimited(c *gin.Context, limiter, retryAfter string) {
	c.Header("Retry-After", retryAfter)
	metrics.RateLimitRejected.WithLabelValues(limiter).Inc()
	response.Fail(c, http.StatusTooManyRequests, response.CodeTooManyRequests, "rate limit exceeded")
}

// RateLimitMiddleware returns a Gin middleware enforcing an in-memory token bucket per key.
// rps = allowed events per second, burst = maximum tokens in bucket.
// Each returned middleware has its own buckets.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	var limiters sync.Map // map[string]*rate.Limiter
	return func(c *gin.Context) {
		v, _ := limiters.LoadOrStore(limitKey(c), rate.NewLimiter(rate.Limit(rps), burst))
		if !v.(*rate.Limiter).Allow() {
			rejectRateLimited(c, "memory", "1")
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
