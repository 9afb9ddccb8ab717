package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRateLimitMiddleware_AllowsUnderLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(10, 2)) // generous rate
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	req := httptest.NewRequest("GET", "/ok", nil)
	w := httptest.NewRecorder()

	// two quick requests should pass
	r.ServeHTTP(w, req)
	req2 := httptest.NewRequest("GET", "/ok", nil)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req2)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, http.StatusOK, w2.Code)

	// verify metrics incremented for memory limiter
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory")))
}

func TestRateLimitMiddleware_BlocksWhenExceeded(t *testing.T) {
	r := gin.New()
	// one token every 200ms
	r.Use(RateLimitMiddleware(5, 1))
	r.GET("/limited", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	// first request -> allowed
	rq1 := httptest.NewRequest("GET", "/limited", nil)
	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, rq1)
	require.Equal(t, http.StatusOK, w1.Code)

	// immediate second request -> should be rate-limited
	rq2 := httptest.NewRequest("GET", "/limited", nil)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, rq2)
	require.Equal(t, http.StatusTooManyRequests, w2.Code)

	// wait past one refill interval and it should be allowed again
	time.Sleep(300 * time.Millisecond)
	rq3 := httptest.NewRequest("GET", "/limited", nil)
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, rq3)
	require.Equal(t, http.StatusOK, w3.Code)
}

func TestRateLimitMiddleware_UsesSubjectWhenPresent(t *testing.T) {
	r := gin.New()
	// middleware that injects claims before rate limiter
	r.Use(func(c *gin.Context) {
		c.Set("claims", map[string]interface{}{"sub": "user-123"})
		c.Next()
	})
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/u", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	// first request allowed
	rq1 := httptest.NewRequest("GET", "/u", nil)
	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, rq1)
	require.Equal(t, http.StatusOK, w1.Code)

	// immediate second request => rejected for same subject
	rq2 := httptest.NewRequest("GET", "/u", nil)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, rq2)
	require.Equal(t, http.StatusTooManyRequests, w2.Code)
}

func TestScopedRateLimit_SeparateBuckets(t *testing.T) {
	r := gin.New()
	r.POST("/login", ScopedRateLimit("login", 0.1, 1), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/register", ScopedRateLimit("register", 0.1, 1), func(c *gin.Context) { c.Status(http.StatusOK) })

	serve := func(path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", path, nil))
		return w.Code
	}
	require.Equal(t, http.StatusOK, serve("/login"))
	require.Equal(t, http.StatusTooManyRequests, serve("/login"))
	require.Equal(t, http.StatusOK, serve("/register"))
}

func TestGetLimiter_EvictsIdleBuckets(t *testing.T) {
	original := limiterIdleTTL
	limiterIdleTTL = 20 * time.Millisecond
	t.Cleanup(func() { limiterIdleTTL = original })

	keys := make([]string, 50)
	for i := range keys {
		keys[i] = fmt.Sprintf("evict:ip:10.0.0.%d", i)
		require.True(t, getLimiter(keys[i], 100, 1).Allow())
	}

	time.Sleep(60 * time.Millisecond)
	limiterStore.DeleteExpired()
	for _, k := range keys {
		_, ok := limiterStore.Get(fmt.Sprintf("%s|%g|%d", k, 100.0, 1))
		require.False(t, ok, k)
	}
}

func TestLimiterTTL_CoversRefill(t *testing.T) {
	require.Equal(t, limiterIdleTTL, limiterTTL(10, 2))
	require.Equal(t, 4000*time.Second, limiterTTL(0.25, 1000))
}
