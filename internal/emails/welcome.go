// Package emails renders the transactional emails sent by the waitlist.
package emails

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// Welcome email defaults.
const (
	DefaultFirstName        = "there"
	DefaultDiscordInviteURL = "https://discord.gg/U82NkuVc"
	DefaultSiteURL          = "https://spryntr.co"
	WelcomeSubject          = "Thanks for joining!"
	welcomePreheader        = "You're on the Spryntr waitlist — here’s what’s next"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	welcomeHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/welcome.html.tmpl"))
	welcomeText = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/welcome.txt.tmpl"))
)

// WelcomeParams are the template inputs. Every field is optional.
type WelcomeParams struct {
	FirstName        string
	DiscordInviteURL string
	SiteURL          string
}

// Rendered is a ready-to-send email body.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

type welcomeView struct {
	Subject          string
	Preheader        string
	FirstName        string
	DiscordInviteURL string
	SiteURL          string
	UnsubscribeURL   string
}

// RenderWelcome renders the HTML and plain-text welcome email.
func RenderWelcome(p WelcomeParams) (Rendered, error) {
	view := welcomeView{
		Subject:          WelcomeSubject,
		Preheader:        welcomePreheader,
		FirstName:        orDefault(p.FirstName, DefaultFirstName),
		DiscordInviteURL: orDefault(p.DiscordInviteURL, DefaultDiscordInviteURL),
		SiteURL:          orDefault(p.SiteURL, DefaultSiteURL),
	}
	view.UnsubscribeURL = strings.TrimRight(view.SiteURL, "/") + "/unsubscribe"

	var html bytes.Buffer
	if err := welcomeHTML.Execute(&html, view); err != nil {
		return Rendered{}, fmt.Errorf("render welcome html: %w", err)
	}

	var text bytes.Buffer
	if err := welcomeText.Execute(&text, view); err != nil {
		return Rendered{}, fmt.Errorf("render welcome text: %w", err)
	}

	return Rendered{
		Subject: WelcomeSubject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

func orDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
