package mail

import (
	"context"
	"errors"
	"strings"

	"github.com/resend/resend-go/v2"
)

// ErrMissingAPIKey is returned when the Resend transport has no credential.
var ErrMissingAPIKey = errors.New("resend: api key is required")

// resendEmails is the subset of the Resend SDK used for delivery.
type resendEmails interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type resendMailer struct {
	emails resendEmails
}

// NewResendMailer builds a Mailer backed by the Resend HTTP API. A fresh
// client is expected per request; the mailer holds no other state.
func NewResendMailer(apiKey string) (Mailer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client := resend.NewClient(apiKey)
	return &resendMailer{emails: client.Emails}, nil
}

func (m *resendMailer) Send(ctx context.Context, msg Message) (string, error) {
	from, recipients, err := validateMessage(msg)
	if err != nil {
		return "", err
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      recipients,
		Subject: escapeHeader(msg.Subject),
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: strings.TrimSpace(msg.ReplyTo),
	}

	resp, err := m.emails.SendWithContext(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &ProviderError{Name: "resend_error", Message: err.Error(), Err: err}
	}
	if resp == nil || resp.Id == "" {
		return "", &ProviderError{Name: "resend_error", Message: "provider returned no message id"}
	}
	return resp.Id, nil
}
