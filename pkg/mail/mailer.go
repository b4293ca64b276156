package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
)

// Message represents an outbound email. HTML and Text are alternatives of the
// same content; at least one must be set.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Mailer defines behaviour for sending email messages. Send returns the
// provider's identifier for the accepted message.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// ProviderError is returned when the delivery provider refuses a message.
// Name and Message are safe to surface to API callers.
type ProviderError struct {
	Name       string `json:"name"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Err        error  `json:"-"`
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AsProviderError extracts a ProviderError from err.
func AsProviderError(err error) (*ProviderError, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

func validateMessage(msg Message) (from string, recipients []string, err error) {
	recipients = uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return "", nil, errors.New("mail: at least one recipient is required")
	}

	from = strings.TrimSpace(msg.From)
	if from == "" {
		return "", nil, errors.New("mail: sender address is required")
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return "", nil, addressError(fmt.Sprintf("invalid from address %q", from), err)
	}

	for _, rcpt := range recipients {
		if _, err := mail.ParseAddress(rcpt); err != nil {
			return "", nil, addressError(fmt.Sprintf("invalid recipient address %q", rcpt), err)
		}
	}

	if strings.TrimSpace(msg.HTML) == "" && strings.TrimSpace(msg.Text) == "" {
		return "", nil, errors.New("mail: message body is required")
	}
	return from, recipients, nil
}

// addressError reports a malformed address the way a provider would refuse it,
// so callers treat it as a delivery refusal rather than an internal fault.
func addressError(message string, err error) *ProviderError {
	return &ProviderError{
		Name:       "validation_error",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        err,
	}
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, exists := seen[addr]; exists {
			continue
		}
		seen[addr] = struct{}{}
		result = append(result, addr)
	}
	return result
}

func escapeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}
