package middleware

import (
	"net/http"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimitMiddleware_Basic(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	clock := time.Unix(1_700_000_000, 0)

	r := gin.New()
	r.Use(redisRateLimit(client, 1, 0, time.Second, func() time.Time { return clock })) // 1 req/sec, no burst
	r.GET("/r", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, get(r, "/r", ""))
	require.Equal(t, http.StatusTooManyRequests, get(r, "/r", ""))

	// next window
	clock = clock.Add(time.Second)
	require.Equal(t, http.StatusOK, get(r, "/r", ""))

	// buckets expire on their own
	m.FastForward(3 * time.Second)
	require.Len(t, m.Keys(), 0)
}

func TestRedisRateLimitMiddleware_StoreDown(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	m.Close()

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 1, 0, time.Second))
	r.GET("/r", func(c *gin.Context) { c.Status(200) })

	require.Equal(t, http.StatusInternalServerError, get(r, "/r", ""))
}

func TestRedisRateLimitMiddleware_NilClientFallsBack(t *testing.T) {
	r := gin.New()
	r.Use(RedisRateLimitMiddleware(nil, 0.5, 1, time.Second))
	r.GET("/r", func(c *gin.Context) { c.Status(200) })

	require.Equal(t, http.StatusOK, get(r, "/r", ""))
	require.Equal(t, http.StatusTooManyRequests, get(r, "/r", ""))
}
