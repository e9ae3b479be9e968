package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heygw44/snapstock/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func get(r *gin.Engine, path, authorization string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitMiddleware_AllowsUnderLimit(t *testing.T) {
	allowed := metrics.RateLimitAllowed.WithLabelValues("memory")
	before := testutil.ToFloat64(allowed)

	r := gin.New()
	r.Use(RateLimitMiddleware(10, 2)) // generous rate
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, get(r, "/ok", ""))
	require.Equal(t, http.StatusOK, get(r, "/ok", ""))

	require.Equal(t, before+2, testutil.ToFloat64(allowed))
}

func TestRateLimitMiddleware_BlocksWhenExceeded(t *testing.T) {
	r := gin.New()
	// very low rate to force rejections
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/limited", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, get(r, "/limited", ""))
	require.Equal(t, http.StatusTooManyRequests, get(r, "/limited", ""))
}

func TestRateLimitMiddleware_KeysByPrincipal(t *testing.T) {
	r := gin.New()
	r.Use(Authenticate(fakeAuthenticator{}))
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/u", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	// same IP, different callers: separate buckets
	require.Equal(t, http.StatusOK, get(r, "/u", "Bearer user"))
	require.Equal(t, http.StatusOK, get(r, "/u", "Bearer admin"))
	require.Equal(t, http.StatusOK, get(r, "/u", ""))

	require.Equal(t, http.StatusTooManyRequests, get(r, "/u", "Bearer user"))
}

func TestRateLimitMiddleware_InstancesDoNotShareBuckets(t *testing.T) {
	r := gin.New()
	r.GET("/a", RateLimitMiddleware(0.5, 1), func(c *gin.Context) { c.Status(200) })
	r.GET("/b", RateLimitMiddleware(0.5, 1), func(c *gin.Context) { c.Status(200) })

	require.Equal(t, http.StatusOK, get(r, "/a", ""))
	require.Equal(t, http.StatusOK, get(r, "/b", ""))
	require.Equal(t, http.StatusTooManyRequests, get(r, "/a", ""))
}

func TestRateLimitMiddleware_Refills(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(20, 1))
	r.GET("/r", func(c *gin.Context) { c.Status(200) })

	require.Equal(t, http.StatusOK, get(r, "/r", ""))
	require.Equal(t, http.StatusTooManyRequests, get(r, "/r", ""))
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, http.StatusOK, get(r, "/r", ""))
}
