package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/spryntr/waitlist/internal/antispam"
	"github.com/spryntr/waitlist/internal/database/testutil"
	"github.com/spryntr/waitlist/internal/services"
	"github.com/spryntr/waitlist/pkg/mail"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(t *testing.T, handler gin.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	router := gin.New()
	route := path
	if i := strings.Index(route, "?"); i >= 0 {
		route = route[:i]
	}
	router.Handle(method, route, handler)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func newTestWaitlist(t *testing.T, cfg services.WaitlistConfig, guard *antispam.Guard) (*services.WaitlistService, *services.SignupEventService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	events, err := services.NewSignupEventService(db)
	require.NoError(t, err)

	opts := []services.WaitlistOption{services.WithEventRecorder(events)}
	if guard != nil {
		opts = append(opts, services.WithGuard(guard))
	}
	svc, err := services.NewWaitlistService(db, cfg, opts...)
	require.NoError(t, err)
	return svc, events, db
}

type stubMailer struct {
	sent []mail.Message
	id   string
	err  error
}

func (m *stubMailer) Send(_ context.Context, msg mail.Message) (string, error) {
	m.sent = append(m.sent, msg)
	if m.err != nil {
		return "", m.err
	}
	return m.id, nil
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
}
