package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func corsRouter(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(origins...))
	r.POST("/waitlist", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestCORSAllowsAnyOriginByDefault(t *testing.T) {
	r := corsRouter()

	preflight := httptest.NewRecorder()
	r.ServeHTTP(preflight, httptest.NewRequest(http.MethodOptions, "/waitlist", nil))
	require.Equal(t, http.StatusNoContent, preflight.Code)
	require.Equal(t, "*", preflight.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, preflight.Header().Get("Access-Control-Allow-Methods"), "POST")
	require.Contains(t, preflight.Header().Get("Access-Control-Allow-Headers"), "X-Admin-Key")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/waitlist", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRestrictsToConfiguredOrigins(t *testing.T) {
	r := corsRouter("https://spryntr.co/", "http://localhost:3000")

	allowed := httptest.NewRequest(http.MethodPost, "/waitlist", nil)
	allowed.Header.Set("Origin", "https://spryntr.co")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, allowed)
	require.Equal(t, "https://spryntr.co", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", w.Header().Get("Vary"))

	denied := httptest.NewRequest(http.MethodPost, "/waitlist", nil)
	denied.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, denied)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
