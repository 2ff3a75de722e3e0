package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter_AllowsBurstThenRejects(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 3, 0)

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow("client-a")
		require.True(t, allowed, "burst request %d should be allowed", i)
	}

	allowed, info := limiter.Allow("client-a")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, 3, info.Limit)
}

func TestTokenBucketLimiter_RefillsOverTime(t *testing.T) {
	limiter := NewTokenBucketLimiter(100, 1, 0)

	allowed, _ := limiter.Allow("client-b")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("client-b")
	require.False(t, allowed)

	time.Sleep(20 * time.Millisecond)

	allowed, _ = limiter.Allow("client-b")
	assert.True(t, allowed, "bucket should refill after waiting")
}

func TestTokenBucketLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 1, 0)

	allowed, _ := limiter.Allow("client-a")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("client-a")
	require.False(t, allowed)

	allowed, _ = limiter.Allow("client-b")
	assert.True(t, allowed, "a saturated key must not affect other keys")
}

func TestTokenBucketLimiter_CleanupEvictsIdleBuckets(t *testing.T) {
	limiter := NewTokenBucketLimiter(1000, 5, 0)

	limiter.Allow("short-lived")
	require.Equal(t, 1, limiter.BucketCount())

	// Force the bucket to look idle and full, then sweep.
	limiter.mu.Lock()
	limiter.buckets["short-lived"].tokens = 5
	limiter.buckets["short-lived"].lastRefill = time.Now().Add(-time.Hour)
	limiter.mu.Unlock()
	limiter.cleanupInterval = time.Minute
	limiter.cleanup()

	assert.Equal(t, 0, limiter.BucketCount())
}

func newRateLimitedRouter(limiter RateLimiter, cfg RateLimitConfig) *gin.Engine {
	r := gin.New()
	r.Use(RateLimit(limiter, cfg))
	r.GET("/api", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimit_SetsHeaders(t *testing.T) {
	limiter := NewTokenBucketLimiter(10, 5, 0)
	router := newRateLimitedRouter(limiter, DefaultRateLimitConfig())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_RejectsWith429(t *testing.T) {
	limiter := NewTokenBucketLimiter(0.1, 1, 0)
	router := newRateLimitedRouter(limiter, DefaultRateLimitConfig())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestRateLimit_SkipPaths(t *testing.T) {
	limiter := NewTokenBucketLimiter(0.001, 1, 0)
	router := newRateLimitedRouter(limiter, DefaultRateLimitConfig())

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, w.Code, "probe %d must bypass the limiter", i)
	}
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	limiter := NewTokenBucketLimiter(0.001, 1, 0)
	cfg := DefaultRateLimitConfig()
	cfg.KeyFunc = func(c *gin.Context) string { return c.GetHeader("X-Client-Key") }
	router := newRateLimitedRouter(limiter, cfg)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api", nil)
		req.Header.Set("X-Client-Key", fmt.Sprintf("client-%d", i))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
}

//Personal.AI order the ending
