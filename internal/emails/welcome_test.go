package emails

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderWelcomeDefaults(t *testing.T) {
	out, err := RenderWelcome(WelcomeParams{})
	require.NoError(t, err)

	require.Equal(t, "Thanks for joining!", out.Subject)
	require.Contains(t, out.HTML, "Thanks for joining, there!")
	require.Contains(t, out.HTML, `href="https://discord.gg/U82NkuVc"`)
	require.Contains(t, out.HTML, "Paste this link in your browser")
	require.Contains(t, out.HTML, `href="https://spryntr.co/unsubscribe"`)
	require.Contains(t, out.Text, "Join our Discord: https://discord.gg/U82NkuVc")
	require.Contains(t, out.Text, "Unsubscribe: https://spryntr.co/unsubscribe")
}

func TestRenderWelcomeUsesParams(t *testing.T) {
	out, err := RenderWelcome(WelcomeParams{
		FirstName:        "  Ada ",
		DiscordInviteURL: "https://discord.gg/test",
		SiteURL:          "http://localhost:3000/",
	})
	require.NoError(t, err)

	require.Contains(t, out.HTML, "Thanks for joining, Ada!")
	require.Contains(t, out.HTML, `href="https://discord.gg/test"`)
	require.Contains(t, out.HTML, "http://localhost:3000/unsubscribe")
	require.Equal(t, 2, strings.Count(out.HTML, `href="https://discord.gg/test"`))
}

func TestRenderWelcomeEscapesFirstName(t *testing.T) {
	out, err := RenderWelcome(WelcomeParams{FirstName: "<script>alert(1)</script>"})
	require.NoError(t, err)

	require.NotContains(t, out.HTML, "<script>")
	require.Contains(t, out.HTML, "&lt;script&gt;")
	require.Contains(t, out.Text, "<script>alert(1)</script>")
}

func TestRenderWelcomeRejectsUnsafeLinks(t *testing.T) {
	out, err := RenderWelcome(WelcomeParams{DiscordInviteURL: "javascript:alert(1)"})
	require.NoError(t, err)
	require.NotContains(t, out.HTML, `href="javascript:`)
}
