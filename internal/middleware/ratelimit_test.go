package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(handle gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/ask", handle, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doAsk(router *gin.Engine, ip string) int {
	req := httptest.NewRequest(http.MethodPost, "/ask", nil)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimit_SecondRequestWithinWindowRejected(t *testing.T) {
	router := newLimitedRouter(RateLimit(time.Minute))

	require.Equal(t, http.StatusOK, doAsk(router, "10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, doAsk(router, "10.0.0.1"))
	// a different client is not affected
	require.Equal(t, http.StatusOK, doAsk(router, "10.0.0.2"))
}

func TestRateLimit_WindowExpiryAllowsAgain(t *testing.T) {
	current := time.Unix(1000, 0)
	var mu sync.Mutex
	limiter := &rateLimiter{
		window:        time.Second,
		last:          make(map[string]time.Time),
		sweepInterval: 10 * time.Second,
		now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return current
		},
	}
	router := newLimitedRouter(limiter.handle)

	require.Equal(t, http.StatusOK, doAsk(router, "10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, doAsk(router, "10.0.0.1"))

	mu.Lock()
	current = current.Add(2 * time.Second)
	mu.Unlock()
	require.Equal(t, http.StatusOK, doAsk(router, "10.0.0.1"))
}

func TestRateLimit_SweepDropsStaleEntries(t *testing.T) {
	current := time.Unix(1000, 0)
	limiter := &rateLimiter{
		window:        time.Second,
		last:          make(map[string]time.Time),
		sweepInterval: 10 * time.Second,
		now:           func() time.Time { return current },
	}
	router := newLimitedRouter(limiter.handle)

	for i := 0; i < 5; i++ {
		doAsk(router, fmt.Sprintf("10.0.0.%d", i+1))
		current = current.Add(3 * time.Second)
	}
	current = current.Add(20 * time.Second)
	doAsk(router, "10.0.0.99")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	require.Len(t, limiter.last, 1)
}

func TestRateLimit_ZeroWindowDisablesLimit(t *testing.T) {
	router := newLimitedRouter(RateLimit(0))
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doAsk(router, "10.0.0.1"))
	}
}
