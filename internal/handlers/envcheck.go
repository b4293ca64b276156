package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spryntr/waitlist/internal/app"
)

// EnvCheck handles GET /api/_envcheck. It reports which integrations are
// configured, as booleans keyed by their environment variable names. Values
// are never echoed.
func EnvCheck(cfg *app.Config) gin.HandlerFunc {
	env := map[string]bool{}
	if cfg != nil {
		env = map[string]bool{
			"SUPABASE_URL":                  set(cfg.Database.Hosted.URL),
			"SUPABASE_SERVICE_ROLE":         set(cfg.Database.Hosted.ServiceRole),
			"DISCORD_INVITE_URL":            set(cfg.Community.DiscordInviteURL),
			"ADMIN_ACCESS_KEY":              set(cfg.Admin.AccessKey),
			"RESEND_API_KEY":                set(cfg.Email.APIKey),
			"FROM_EMAIL":                    set(cfg.Email.From),
			"NEXT_PUBLIC_SANITY_PROJECT_ID": set(cfg.CMS.ProjectID),
		}
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":      true,
			"runtime": "go",
			"env":     env,
		})
	}
}

func set(value string) bool {
	return strings.TrimSpace(value) != ""
}
