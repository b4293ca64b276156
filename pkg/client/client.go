// Package client is the submitting side of the waitlist funnel: the form
// state, the HTTP calls against the intake API and the presenter sequence
// that runs once a signup is stored.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spryntr/waitlist/pkg/validator"
)

const defaultTimeout = 15 * time.Second

// Signup is the payload posted to the waitlist endpoint.
type Signup struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Org       string `json:"org,omitempty"`
	Sector    string `json:"sector,omitempty"`
	Country   string `json:"country,omitempty"`
	Company   string `json:"company,omitempty"`
	OpenedAt  *int64 `json:"t,omitempty"`
}

// SubmitResult reports how the server handled a signup.
type SubmitResult struct {
	Created           bool
	AlreadyOnWaitlist bool
	Redirect          string
	Data              json.RawMessage
}

// NotifyResult is the welcome email outcome. OK is false when the provider
// refused the message.
type NotifyResult struct {
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Stage string `json:"stage,omitempty"`
	Error string `json:"error,omitempty"`
}

// ValidationError is raised before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// APIError carries a non-success response from the server.
type APIError struct {
	Status  int
	Code    string
	Field   string
	Stage   string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the waitlist intake API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New builds a Client rooted at baseURL, e.g. https://spryntr.co/api.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client: base url %q must be http or https", baseURL)
	}
	c := &Client{baseURL: u, http: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type apiResponse struct {
	OK                bool            `json:"ok"`
	AlreadyOnWaitlist bool            `json:"alreadyOnWaitlist"`
	Redirect          string          `json:"redirect"`
	Message           string          `json:"message"`
	Data              json.RawMessage `json:"data"`
	Error             string          `json:"error"`
	Code              string          `json:"code"`
	Field             string          `json:"field"`
	Stage             string          `json:"stage"`
	ID                string          `json:"id"`
}

// Submit validates the signup locally and posts it. Validation failures
// return a *ValidationError without touching the network.
func (c *Client) Submit(ctx context.Context, signup Signup) (*SubmitResult, error) {
	if err := ValidateSignup(signup); err != nil {
		return nil, err
	}

	status, body, err := c.do(ctx, http.MethodPost, "waitlist", signup)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 || !body.OK {
		return nil, apiError(status, body, "Failed to join waitlist")
	}
	return &SubmitResult{
		Created:           status == http.StatusCreated,
		AlreadyOnWaitlist: body.AlreadyOnWaitlist,
		Redirect:          body.Redirect,
		Data:              body.Data,
	}, nil
}

// Notify asks the server to send the welcome email.
func (c *Client) Notify(ctx context.Context, email, firstName string) (*NotifyResult, error) {
	if strings.TrimSpace(email) == "" {
		return nil, &ValidationError{Field: "email", Message: "email required"}
	}

	payload := map[string]string{"email": email}
	if firstName != "" {
		payload["first_name"] = firstName
	}
	status, body, err := c.do(ctx, http.MethodPost, "waitlist/notify", payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apiError(status, body, "Failed to send welcome email")
	}
	return &NotifyResult{OK: body.OK, ID: body.ID, Stage: body.Stage, Error: body.Error}, nil
}

// Status returns the intake endpoint's health message.
func (c *Client) Status(ctx context.Context) (string, error) {
	status, body, err := c.do(ctx, http.MethodGet, "waitlist", nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK || !body.OK {
		return "", apiError(status, body, "waitlist unavailable")
	}
	return body.Message, nil
}

// ValidateSignup checks required fields and the email shape.
func ValidateSignup(s Signup) error {
	required := []struct {
		field string
		value string
	}{
		{"first_name", s.FirstName},
		{"last_name", s.LastName},
		{"email", s.Email},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: "Missing or invalid field: " + r.field}
		}
	}
	if !validator.IsSimpleEmail(strings.TrimSpace(s.Email)) {
		return &ValidationError{Field: "email", Message: "Invalid email"}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (int, apiResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, apiResponse{}, fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	target := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return 0, apiResponse{}, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, apiResponse{}, fmt.Errorf("client: %s %s: %w", method, target.Path, err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, apiResponse{}, &APIError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("unexpected response (%d)", resp.StatusCode),
		}
	}
	return resp.StatusCode, body, nil
}

func apiError(status int, body apiResponse, fallback string) *APIError {
	msg := strings.TrimSpace(body.Error)
	if msg == "" {
		msg = fallback
	}
	return &APIError{Status: status, Code: body.Code, Field: body.Field, Stage: body.Stage, Message: msg}
}
