package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/spryntr/waitlist/internal/cache"
	"github.com/spryntr/waitlist/internal/database/testutil"
)

type brokenStore struct{ cache.Store }

func (brokenStore) IncrementWithTTL(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("database is locked")
}

func rateLimitedRouter(store cache.Store, limit int, window time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(store, limit, window))
	r.POST("/waitlist", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/waitlist", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func hit(r *gin.Engine, method string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, "/waitlist", nil))
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	r := rateLimitedRouter(cache.NewMemoryStore(), 2, 100*time.Millisecond)

	for i := 0; i < 2; i++ {
		w := hit(r, http.MethodPost)
		require.Equal(t, http.StatusOK, w.Code)
	}
	// Reads and writes to the same route share one counter.

	w := hit(r, http.MethodGet)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	require.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	time.Sleep(120 * time.Millisecond)
	require.Equal(t, http.StatusOK, hit(r, http.MethodPost).Code)
}

func TestRateLimitWithDatabaseStore(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	r := rateLimitedRouter(cache.NewDatabaseStore(db), 1, time.Minute)

	require.Equal(t, http.StatusOK, hit(r, http.MethodPost).Code)
	require.Equal(t, http.StatusTooManyRequests, hit(r, http.MethodPost).Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := rateLimitedRouter(brokenStore{}, 1, time.Minute)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(r, http.MethodPost).Code)
	}

	disabled := rateLimitedRouter(nil, 1, time.Minute)
	require.Equal(t, http.StatusOK, hit(disabled, http.MethodPost).Code)
	require.Equal(t, http.StatusOK, hit(disabled, http.MethodPost).Code)
}
