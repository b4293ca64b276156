package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/spryntr/waitlist/internal/app"
	"github.com/spryntr/waitlist/internal/cache"
	"github.com/spryntr/waitlist/internal/cms"
	"github.com/spryntr/waitlist/internal/database/testutil"
	"github.com/spryntr/waitlist/internal/monitoring"
	"github.com/spryntr/waitlist/internal/monitoring/checks"
	"github.com/spryntr/waitlist/internal/sender"
	"github.com/spryntr/waitlist/internal/services"
	"github.com/spryntr/waitlist/pkg/mail"
)

type outbox struct{ sent []mail.Message }

func (o *outbox) Send(_ context.Context, msg mail.Message) (string, error) {
	o.sent = append(o.sent, msg)
	return "email_1", nil
}

type emptyCMS struct{}

func (emptyCMS) Posts(context.Context) ([]cms.Post, error) { return nil, cms.ErrNotConfigured }

func testConfig() *app.Config {
	cfg := &app.Config{}
	cfg.Admin.AccessKey = "admin-key"
	cfg.Monitoring.Health.Enabled = true
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Server.RateLimit = app.RateLimitConfig{Enabled: true, Requests: 50, Window: time.Minute}
	return cfg
}

func newTestRouter(t *testing.T, cfg *app.Config) (*gin.Engine, *outbox) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	events, err := services.NewSignupEventService(db)
	require.NoError(t, err)
	waitlist, err := services.NewWaitlistService(db, services.WaitlistConfig{StrictEmail: true}, services.WithEventRecorder(events))
	require.NoError(t, err)

	box := &outbox{}
	notify, err := services.NewNotificationService(services.NotificationConfig{
		Sender:             sender.Policy{AccountEmail: "vem@spryntr.co"},
		ProviderConfigured: true,
		NewMailer:          func() (mail.Mailer, error) { return box, nil },
	})
	require.NoError(t, err)

	blog, err := services.NewBlogService(emptyCMS{}, cache.NewMemoryStore(), 0)
	require.NoError(t, err)

	mon := monitoring.NewModule()
	mon.Health().RegisterReadiness(checks.Database(db, time.Second))
	mon.Health().RegisterReadiness(checks.Email(false, "resend"))

	router, err := NewRouter(Dependencies{
		Config:        cfg,
		Waitlist:      waitlist,
		Events:        events,
		Notifications: notify,
		Blog:          blog,
		RateStore:     cache.NewMemoryStore(),
		Monitoring:    mon,
	})
	require.NoError(t, err)
	return router, box
}

func request(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouterSignupThenNotify(t *testing.T) {
	router, box := newTestRouter(t, testConfig())

	signup := `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","org":"Analytical Engines","sector":"Education","country":"Nigeria"}`
	w := request(router, http.MethodPost, "/waitlist", signup, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = request(router, http.MethodPost, "/api/waitlist", signup, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"alreadyOnWaitlist":true`)

	w = request(router, http.MethodPost, "/waitlist/notify", `{"email":"ada@example.com","first_name":"Ada"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, true, payload["ok"])
	require.Equal(t, "email_1", payload["id"])

	require.Len(t, box.sent, 1)
	require.Equal(t, []string{"vem@spryntr.co"}, box.sent[0].To)

	w = request(router, http.MethodPost, "/waitlist", `{"email":"not-an-email","first_name":"A","last_name":"B"}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), `"error":"Invalid email"`)
}

func TestRouterPublicRoutes(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	for _, path := range []string{"/waitlist", "/api/waitlist", "/api/_envcheck", "/api/blog/posts", "/metrics"} {
		w := request(router, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, w.Code, path)
	}

	w := request(router, http.MethodGet, "/api/blog/posts", "", nil)
	require.JSONEq(t, `{"ok":true,"data":[]}`, w.Body.String())

	w = request(router, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = request(router, http.MethodOptions, "/waitlist", "", map[string]string{"Origin": "https://spryntr.co"})
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouterHealth(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	w := request(router, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Equal(t, false, report["ok"])
	require.Equal(t, string(monitoring.StatusDegraded), report["status"])
	require.Len(t, report["checks"], 2)

	w = request(router, http.MethodGet, "/api/health/live", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	cfg := testConfig()
	cfg.Monitoring.Health.Enabled = false
	cfg.Monitoring.Prometheus.Enabled = false
	disabled, _ := newTestRouter(t, cfg)
	require.Equal(t, http.StatusNotFound, request(disabled, http.MethodGet, "/health", "", nil).Code)
	require.Equal(t, http.StatusNotFound, request(disabled, http.MethodGet, "/metrics", "", nil).Code)
}

func TestRouterAdminRoutes(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())
	request(router, http.MethodPost, "/waitlist", `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com"}`, nil)

	for _, path := range []string{"/api/admin/waitlist", "/api/admin/waitlist/export", "/api/admin/waitlist/events", "/api/admin/summary"} {
		require.Equal(t, http.StatusUnauthorized, request(router, http.MethodGet, path, "", nil).Code, path)
		w := request(router, http.MethodGet, path, "", map[string]string{"X-Admin-Key": "admin-key"})
		require.Equal(t, http.StatusOK, w.Code, path)
	}

	w := request(router, http.MethodGet, "/api/admin/waitlist/export", "", map[string]string{"Authorization": "Bearer admin-key"})
	require.Contains(t, w.Body.String(), "ada@example.com")

	cfg := testConfig()
	cfg.Admin.AccessKey = ""
	closed, _ := newTestRouter(t, cfg)
	require.Equal(t, http.StatusNotFound, request(closed, http.MethodGet, "/api/admin/waitlist", "", map[string]string{"X-Admin-Key": ""}).Code)
}

func TestRouterRateLimitsIntake(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit.Requests = 2
	router, _ := newTestRouter(t, cfg)

	body := `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com"}`
	require.NotEqual(t, http.StatusTooManyRequests, request(router, http.MethodPost, "/waitlist", body, nil).Code)
	require.NotEqual(t, http.StatusTooManyRequests, request(router, http.MethodPost, "/waitlist", body, nil).Code)
	require.Equal(t, http.StatusTooManyRequests, request(router, http.MethodPost, "/waitlist", body, nil).Code)

	// Only the intake routes are limited.
	require.Equal(t, http.StatusOK, request(router, http.MethodGet, "/api/_envcheck", "", nil).Code)
}

func TestNewRouterRequiresConfig(t *testing.T) {
	_, err := NewRouter(Dependencies{})
	require.Error(t, err)
}
