package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrSMTPDisabled signals that SMTP delivery is disabled via configuration.
var ErrSMTPDisabled = errors.New("smtp: delivery disabled")

// SMTPSettings capture the runtime configuration required by the SMTP mailer.
type SMTPSettings struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
	Timeout  time.Duration
}

type smtpMailer struct {
	cfg    SMTPSettings
	dialFn smtpDialFunc
	authFn smtpAuthFunc
	now    func() time.Time
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) (string, error) {
	if !m.cfg.Enabled {
		return "", ErrSMTPDisabled
	}

	if strings.TrimSpace(msg.From) == "" {
		msg.From = m.cfg.From
	}
	from, recipients, err := validateMessage(msg)
	if err != nil {
		return "", err
	}

	// Envelope commands take the bare address, headers keep the display name.
	envelopeFrom, _ := mail.ParseAddress(from)

	conn, client, err := m.dialFn(ctx, m.cfg)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	defer client.Close()

	if err := m.authFn(client, m.cfg); err != nil {
		return "", err
	}

	if err := client.Mail(envelopeFrom.Address); err != nil {
		return "", &ProviderError{Name: "smtp_error", Message: fmt.Sprintf("mail from: %v", err), Err: err}
	}
	for _, rcpt := range recipients {
		addr, _ := mail.ParseAddress(rcpt)
		if err := client.Rcpt(addr.Address); err != nil {
			return "", &ProviderError{Name: "smtp_error", Message: fmt.Sprintf("rcpt to %s: %v", addr.Address, err), Err: err}
		}
	}

	wc, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("smtp: data command: %w", err)
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), m.cfg.Host)
	content, err := formatMessage(messageID, m.now(), from, recipients, msg)
	if err != nil {
		_ = wc.Close()
		return "", err
	}
	if _, err := wc.Write(content); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("smtp: write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("smtp: close data writer: %w", err)
	}

	if err := client.Quit(); err != nil {
		return "", fmt.Errorf("smtp: quit: %w", err)
	}
	return messageID, nil
}

func validateSMTPConfig(cfg SMTPSettings) error {
	if !cfg.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return errors.New("smtp: host is required when enabled")
	}
	if cfg.Port == 0 {
		return errors.New("smtp: port is required when enabled")
	}
	return nil
}

type smtpClient interface {
	Mail(string) error
	Rcpt(string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
	StartTLS(*tls.Config) error
	Auth(smtp.Auth) error
	Extension(string) (bool, string)
}

type smtpDialFunc func(ctx context.Context, cfg SMTPSettings) (net.Conn, smtpClient, error)
type smtpAuthFunc func(client smtpClient, cfg SMTPSettings) error

// NewSMTPMailer builds a Mailer that relays through an SMTP server.
func NewSMTPMailer(cfg SMTPSettings) (Mailer, error) {
	if err := validateSMTPConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &smtpMailer{
		cfg:    cfg,
		dialFn: defaultDialFunc,
		authFn: defaultAuthFunc,
		now:    time.Now,
	}, nil
}

func defaultDialFunc(ctx context.Context, cfg SMTPSettings) (net.Conn, smtpClient, error) {
	address := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	dialer := &net.Dialer{Timeout: cfg.Timeout}

	var (
		conn net.Conn
		err  error
	)

	if cfg.UseTLS {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: cfg.Host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", address)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("smtp: dial %s: %w", address, err)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("smtp: new client: %w", err)
	}

	if !cfg.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				_ = client.Close()
				_ = conn.Close()
				return nil, nil, fmt.Errorf("smtp: start tls: %w", err)
			}
		}
	}

	return conn, &realSMTPClient{Client: client}, nil
}

func defaultAuthFunc(client smtpClient, cfg SMTPSettings) error {
	if strings.TrimSpace(cfg.Username) == "" {
		return nil
	}
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	if err := client.Auth(auth); err != nil {
		return &ProviderError{Name: "smtp_auth_error", Message: err.Error(), Err: err}
	}
	return nil
}

type realSMTPClient struct {
	*smtp.Client
}

// formatMessage renders an RFC 5322 message. When both HTML and Text are
// present they are sent as multipart/alternative with the text part first.
func formatMessage(messageID string, date time.Time, from string, to []string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	headers := []string{
		fmt.Sprintf("From: %s", escapeHeader(from)),
		fmt.Sprintf("To: %s", strings.Join(to, ", ")),
		fmt.Sprintf("Subject: %s", escapeHeader(msg.Subject)),
		fmt.Sprintf("Date: %s", date.UTC().Format(time.RFC1123Z)),
		fmt.Sprintf("Message-ID: %s", messageID),
		"MIME-Version: 1.0",
	}
	if reply := strings.TrimSpace(msg.ReplyTo); reply != "" {
		headers = append(headers, fmt.Sprintf("Reply-To: %s", escapeHeader(reply)))
	}

	switch {
	case msg.HTML != "" && msg.Text != "":
		mw := multipart.NewWriter(&buf)
		headers = append(headers, fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q", mw.Boundary()))
		for _, part := range []struct{ contentType, body string }{
			{"text/plain; charset=UTF-8", msg.Text},
			{"text/html; charset=UTF-8", msg.HTML},
		} {
			w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.contentType}})
			if err != nil {
				return nil, fmt.Errorf("smtp: create part: %w", err)
			}
			if _, err := io.WriteString(w, part.body); err != nil {
				return nil, fmt.Errorf("smtp: write part: %w", err)
			}
		}
		if err := mw.Close(); err != nil {
			return nil, fmt.Errorf("smtp: close multipart: %w", err)
		}
	case msg.HTML != "":
		headers = append(headers, "Content-Type: text/html; charset=UTF-8")
		buf.WriteString(msg.HTML)
	default:
		headers = append(headers, "Content-Type: text/plain; charset=UTF-8")
		buf.WriteString(msg.Text)
	}

	head := strings.Join(headers, "\r\n") + "\r\n\r\n"
	return append([]byte(head), buf.Bytes()...), nil
}
