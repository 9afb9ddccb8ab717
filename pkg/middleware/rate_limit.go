package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/metrics"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Buckets idle for limiterIdleTTL are evicted; a bucket is never dropped
// before it would have refilled to burst.
var limiterIdleTTL = 10 * time.Minute

// per-key limiter store (in-memory token buckets)
var (
	limiterMu    sync.Mutex
	limiterStore = gocache.New(limiterIdleTTL, time.Minute)
)

func limiterTTL(rps float64, burst int) time.Duration {
	ttl := limiterIdleTTL
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > ttl {
			ttl = refill
		}
	}
	return ttl
}

func getLimiter(key string, rps float64, burst int) *rate.Limiter {
	key = fmt.Sprintf("%s|%g|%d", key, rps, burst)
	limiterMu.Lock()
	defer limiterMu.Unlock()
	var l *rate.Limiter
	if v, ok := limiterStore.Get(key); ok {
		l = v.(*rate.Limiter)
	} else {
		l = rate.NewLimiter(rate.Limit(rps), burst)
	}
	limiterStore.Set(key, l, limiterTTL(rps, burst))
	return l
}

// limitKey prefers the authenticated subject (NAT-friendly) and falls back to the client IP.
func limitKey(c *gin.Context, scope string) string {
	if cm, ok := Claims(c); ok {
		if sub, _ := cm["sub"].(string); sub != "" {
			return scope + "sub:" + sub
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return scope + "ip:" + ip
}

func rejectLimited(c *gin.Context, limiter, retryAfter string) {
	c.Header("Retry-After", retryAfter)
	metrics.RateLimitRejected.WithLabelValues(limiter).Inc()
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
}

// RateLimitMiddleware enforces a per-subject token bucket: rps events per second, burst tokens.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	return ScopedRateLimit("", rps, burst)
}

// ScopedRateLimit keeps separate buckets per scope so sensitive routes
// (login, registration, message sends) get their own budget.
func ScopedRateLimit(scope string, rps float64, burst int) gin.HandlerFunc {
	if scope != "" {
		scope += ":"
	}
	return func(c *gin.Context) {
		if !getLimiter(limitKey(c, scope), rps, burst).Allow() {
			rejectLimited(c, "memory", "1")
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
