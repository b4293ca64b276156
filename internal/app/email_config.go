package app

import (
	"strings"

	"github.com/spryntr/waitlist/internal/sender"
	"github.com/spryntr/waitlist/pkg/mail"
)

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// SenderPolicy returns the static inputs of the sender identity resolver.
func (c EmailConfig) SenderPolicy() sender.Policy {
	from := c.From
	if c.UsesSMTP() && strings.TrimSpace(from) == "" {
		from = c.SMTP.From
	}
	return sender.Policy{
		From:           from,
		VerifiedDomain: c.VerifiedDomain,
		SandboxDomain:  c.SandboxDomain,
		SandboxSender:  c.SandboxSender,
		AccountEmail:   c.AccountEmail,
	}
}

// UsesSMTP reports whether outbound mail goes through the SMTP transport.
func (c EmailConfig) UsesSMTP() bool {
	return strings.EqualFold(strings.TrimSpace(c.Provider), "smtp")
}

// ProviderConfigured reports whether the selected transport has credentials.
func (c EmailConfig) ProviderConfigured() bool {
	if c.UsesSMTP() {
		return c.SMTP.Enabled && strings.TrimSpace(c.SMTP.Host) != ""
	}
	return strings.TrimSpace(c.APIKey) != ""
}

// NewMailer builds a fresh transport for the selected provider. Callers
// build one per notification.
func (c EmailConfig) NewMailer() (mail.Mailer, error) {
	if c.UsesSMTP() {
		return mail.NewSMTPMailer(c.SMTPSettings())
	}
	return mail.NewResendMailer(c.APIKey)
}
