package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heygw44/snapstock/pkg/logger"
	"github.com/heygw44/snapstock/pkg/metrics"
	"github.com/heygw44/snapstock/pkg/response"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimitMiddleware provides a coarse fixed-window Redis-backed limiter shared by all instances.
// Algorithm: INCR a per-window key and compare against allowed = floor(rps*windowSeconds)+burst.
// The window bucket is derived from now(), which tests may replace.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	return redisRateLimit(client, rps, burst, window, time.Now)
}

func redisRateLimit(client *redis.Client, rps float64, burst int, window time.Duration, now func() time.Time) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	windowSeconds := int(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	allowedPerWindow := int(rps*float64(windowSeconds)) + burst
	return func(c *gin.Context) {
		bucket := now().Unix() / int64(windowSeconds)
		redisKey := fmt.Sprintf("rl:%s:%d", limitKey(c), bucket)

		cnt, err := client.Incr(c.Request.Context(), redisKey).Result()
		if err != nil {
			logger.Errorw("rate limit check failed", "err", err)
			response.Fail(c, http.StatusInternalServerError, response.CodeInternal, "rate limit check failed")
			return
		}
		if cnt == 1 {
			_ = client.Expire(c.Request.Context(), redisKey, time.Duration(windowSeconds+1)*time.Second).Err()
		}
		if int(cnt) > allowedPerWindow {
			rejectRateLimited(c, "redis", fmt.Sprintf("%d", windowSeconds))
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
