package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/biolink/internal/ratelimit"
	"github.com/zfogg/biolink/internal/util"
)

type brokenLimiter struct{}

func (brokenLimiter) Enforce(context.Context, string, int, time.Duration) error {
	return errors.New("connection refused")
}

func newLimitedRouter(l ratelimit.Limiter, q ratelimit.Quota, by PrincipalFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-User-ID"); id != "" {
			c.Set(util.ContextUserIDKey, id)
		}
		c.Next()
	})
	router.GET("/test", RateLimit(l, q, by), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func doRequest(router *gin.Engine, remoteAddr, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteAddr
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit_ByIP(t *testing.T) {
	quota := ratelimit.Quota{Action: "test:ip", Limit: 3, Window: time.Minute}
	router := newLimitedRouter(ratelimit.NewMemoryLimiter(), quota, ByIP)

	for i := 0; i < 3; i++ {
		w := doRequest(router, "10.0.0.1:1234", "")
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	w := doRequest(router, "10.0.0.1:1234", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "4th request should be rate limited")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"code":"RATE_LIMITED"`)
	assert.Contains(t, w.Body.String(), `"retry_after":`)

	// A different client has its own window
	w = doRequest(router, "10.0.0.2:1234", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_ByUser(t *testing.T) {
	quota := ratelimit.Quota{Action: "test:user", Limit: 1, Window: time.Hour}
	router := newLimitedRouter(ratelimit.NewMemoryLimiter(), quota, ByUser)

	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1", "alice").Code)
	// Same user from another address is still the same principal
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "10.0.0.9:1", "alice").Code)
	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1", "bob").Code)

	// Anonymous requests are not charged
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1", "").Code)
	}
}

func TestRateLimit_StoreFailureFailsClosed(t *testing.T) {
	quota := ratelimit.Quota{Action: "test:broken", Limit: 100, Window: time.Minute}
	router := newLimitedRouter(brokenLimiter{}, quota, ByIP)

	w := doRequest(router, "10.0.0.1:1234", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "SERVICE_UNAVAILABLE")
	assert.NotContains(t, w.Body.String(), "connection refused")
}
