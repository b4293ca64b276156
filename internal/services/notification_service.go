package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spryntr/waitlist/internal/emails"
	"github.com/spryntr/waitlist/internal/models"
	"github.com/spryntr/waitlist/internal/sender"
	apperrors "github.com/spryntr/waitlist/pkg/errors"
	"github.com/spryntr/waitlist/pkg/logger"
	"github.com/spryntr/waitlist/pkg/mail"
	"github.com/spryntr/waitlist/pkg/metrics"
)

// Notification stages reported to the caller.
const (
	StageValidate = "validate"
	StageConfig   = "config"
	StageProvider = "provider"
	StageServer   = "server"
	stageSent     = "sent"
)

// MailerFactory builds a fresh transport for a single notification.
type MailerFactory func() (mail.Mailer, error)

// NotificationConfig is the static configuration of the welcome email.
type NotificationConfig struct {
	Sender  sender.Policy
	ReplyTo string
	// ProviderConfigured reports whether the transport credential is present.
	ProviderConfigured bool
	// MissingProviderMessage is returned when ProviderConfigured is false.
	MissingProviderMessage string
	DiscordInviteURL       string
	SiteURL                string
	NewMailer              MailerFactory
}

// NotifyInfo describes how a notification was addressed. It never carries secrets.
type NotifyInfo struct {
	HasKey         bool   `json:"hasKey"`
	IsVerifiedMode bool   `json:"isVerifiedMode"`
	From           string `json:"from"`
	To             string `json:"to"`
	ReplyTo        string `json:"replyTo"`
	Site           string `json:"site"`
	DiscordInvite  string `json:"discordInvite,omitempty"`
	Note           string `json:"note"`
}

// NotifyResult is returned for every notification that reached the provider.
// ProviderError is set when the provider refused the message; the signup
// itself is unaffected.
type NotifyResult struct {
	ID            string
	Info          NotifyInfo
	ProviderError *mail.ProviderError
}

// Sent reports whether the provider accepted the message.
func (r *NotifyResult) Sent() bool {
	return r != nil && r.ProviderError == nil
}

// NotifyError is a notification failure that happened before or outside the
// provider call. Err is an AppError carrying the HTTP status.
type NotifyError struct {
	Stage string
	Info  *NotifyInfo
	Err   *apperrors.AppError
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify %s: %s", e.Stage, e.Err.Message)
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}

// NotificationService sends the welcome email for a stored signup.
type NotificationService struct {
	cfg NotificationConfig
	log *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(cfg NotificationConfig) (*NotificationService, error) {
	if cfg.NewMailer == nil {
		return nil, errors.New("notification service: mailer factory is required")
	}
	if strings.TrimSpace(cfg.MissingProviderMessage) == "" {
		cfg.MissingProviderMessage = "RESEND_API_KEY missing"
	}
	svc := &NotificationService{cfg: cfg, log: logger.WithModule("notify")}
	if cfg.Sender.MalformedFrom() {
		svc.log.Warn("FROM_EMAIL is not a valid address; welcome emails use the sandbox sender",
			zap.String("from", cfg.Sender.From))
	}
	return svc, nil
}

// Notify resolves the sender identity, renders the welcome email and sends
// it. Configuration is checked before any network call.
func (s *NotificationService) Notify(ctx context.Context, req models.NotificationRequest) (*NotifyResult, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(req.Email) == "" {
		metrics.Notifications.WithLabelValues(StageValidate, "").Inc()
		return nil, &NotifyError{Stage: StageValidate, Err: apperrors.NewValidation("email", "email required")}
	}

	identity := sender.Resolve(s.cfg.Sender, req.Email)
	info := NotifyInfo{
		HasKey:         s.cfg.ProviderConfigured,
		IsVerifiedMode: identity.Verified,
		From:           identity.From,
		To:             identity.To,
		ReplyTo:        s.cfg.ReplyTo,
		Site:           s.cfg.SiteURL,
		DiscordInvite:  s.cfg.DiscordInviteURL,
		Note:           identity.Note,
	}
	mode := modeLabel(identity.Verified)
	s.log.Info("sending welcome email",
		zap.Bool("has_key", info.HasKey),
		zap.Bool("verified", info.IsVerifiedMode),
		zap.String("from", info.From),
		zap.String("to", info.To),
		zap.String("note", info.Note),
	)

	if !s.cfg.ProviderConfigured {
		return nil, s.fail(StageConfig, mode, &info, apperrors.NewConfiguration(s.cfg.MissingProviderMessage))
	}
	if identity.Verified && strings.TrimSpace(identity.From) == "" {
		return nil, s.fail(StageConfig, mode, &info, apperrors.NewConfiguration("FROM_EMAIL not set"))
	}

	rendered, err := emails.RenderWelcome(emails.WelcomeParams{
		FirstName:        strings.TrimSpace(req.FirstName),
		DiscordInviteURL: s.cfg.DiscordInviteURL,
		SiteURL:          s.cfg.SiteURL,
	})
	if err != nil {
		return nil, s.fail(StageServer, mode, nil, apperrors.Wrap(err, err.Error()))
	}

	mailer, err := s.cfg.NewMailer()
	if err != nil {
		if errors.Is(err, mail.ErrMissingAPIKey) || errors.Is(err, mail.ErrSMTPDisabled) {
			return nil, s.fail(StageConfig, mode, &info, apperrors.NewConfiguration(s.cfg.MissingProviderMessage))
		}
		return nil, s.fail(StageServer, mode, nil, apperrors.Wrap(err, err.Error()))
	}

	id, err := mailer.Send(ctx, mail.Message{
		From:    identity.From,
		To:      []string{identity.To},
		ReplyTo: s.cfg.ReplyTo,
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
	})
	if err != nil {
		if perr, ok := mail.AsProviderError(err); ok {
			metrics.Notifications.WithLabelValues(StageProvider, mode).Inc()
			s.log.Error("welcome email rejected by provider",
				zap.String("name", perr.Name),
				zap.String("message", perr.Message),
				zap.Error(perr.Err),
			)
			return &NotifyResult{Info: info, ProviderError: perr}, nil
		}
		return nil, s.fail(StageServer, mode, nil, apperrors.Wrap(err, err.Error()))
	}

	metrics.Notifications.WithLabelValues(stageSent, mode).Inc()
	s.log.Info("welcome email sent", zap.String("id", id), zap.String("to", identity.To))
	return &NotifyResult{ID: id, Info: info}, nil
}

func (s *NotificationService) fail(stage, mode string, info *NotifyInfo, err *apperrors.AppError) *NotifyError {
	metrics.Notifications.WithLabelValues(stage, mode).Inc()
	fields := []zap.Field{zap.String("stage", stage), zap.String("error", err.Message)}
	if err.Internal != nil {
		fields = append(fields, zap.Error(err.Internal))
	}
	s.log.Error("welcome email failed", fields...)
	return &NotifyError{Stage: stage, Info: info, Err: err}
}

func modeLabel(verified bool) string {
	if verified {
		return "verified"
	}
	return "sandbox"
}
