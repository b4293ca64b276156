package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spryntr/waitlist/internal/app"
)

func TestEnvCheckReportsBooleansOnly(t *testing.T) {
	cfg := &app.Config{}
	cfg.Database.Hosted.URL = "https://abc.supabase.co"
	cfg.Database.Hosted.ServiceRole = "service-role-secret"
	cfg.Email.APIKey = "re_secret"
	cfg.Admin.AccessKey = "   "

	rec := perform(t, EnvCheck(cfg), http.MethodGet, "/api/_envcheck", "")
	requireStatus(t, rec, http.StatusOK)
	require.NotContains(t, rec.Body.String(), "secret")

	body := decodeBody(t, rec)
	require.Equal(t, true, body["ok"])
	env := body["env"].(map[string]any)
	require.Equal(t, true, env["SUPABASE_URL"])
	require.Equal(t, true, env["SUPABASE_SERVICE_ROLE"])
	require.Equal(t, true, env["RESEND_API_KEY"])
	require.Equal(t, false, env["ADMIN_ACCESS_KEY"])
	require.Equal(t, false, env["DISCORD_INVITE_URL"])
	require.Equal(t, false, env["FROM_EMAIL"])
}
