package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spryntr/waitlist/internal/antispam"
	"github.com/spryntr/waitlist/pkg/logger"
)

// ErrSubmitInFlight is returned when Submit is called while a previous
// submit has not finished.
var ErrSubmitInFlight = errors.New("client: submit already in flight")

// State is the funnel's position in the submit lifecycle.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Backend is the pair of calls a Funnel sequences. *Client implements it.
type Backend interface {
	Submit(ctx context.Context, signup Signup) (*SubmitResult, error)
	Notify(ctx context.Context, email, firstName string) (*NotifyResult, error)
}

const (
	toastTitle          = "You're on the list"
	toastMessage        = "Thanks for joining the Spryntr waitlist. Check your inbox for a welcome email."
	toastReturningTitle = "Welcome back"
	toastReturning      = "You're already on the Spryntr waitlist. We'll be in touch."
)

// Funnel drives one signup modal: open, fill, submit, present.
type Funnel struct {
	backend   Backend
	presenter Presenter
	guard     *antispam.Guard
	inviteURL string
	form      *Form
	modal     *Modal
	log       *zap.Logger

	mu       sync.Mutex
	state    State
	inFlight bool
	lastErr  error
}

// FunnelOption customises a Funnel.
type FunnelOption func(*Funnel)

// WithGuard screens submissions before they are sent. A rejected
// submission is presented as a success and nothing is sent.
func WithGuard(g *antispam.Guard) FunnelOption {
	return func(f *Funnel) { f.guard = g }
}

// WithInviteURL sets the community link shown after a successful signup.
func WithInviteURL(url string) FunnelOption {
	return func(f *Funnel) { f.inviteURL = strings.TrimSpace(url) }
}

// WithClock overrides the clock used to stamp the modal open time.
func WithClock(now func() time.Time) FunnelOption {
	return func(f *Funnel) { f.modal = NewModal(now) }
}

// NewFunnel wires a backend to a presenter. A nil presenter discards output.
func NewFunnel(backend Backend, presenter Presenter, opts ...FunnelOption) *Funnel {
	if presenter == nil {
		presenter = nopPresenter{}
	}
	f := &Funnel{
		backend:   backend,
		presenter: presenter,
		form:      &Form{},
		modal:     NewModal(nil),
		log:       logger.WithModule("client"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Form returns the funnel's form state.
func (f *Funnel) Form() *Form { return f.form }

// Modal returns the funnel's modal state.
func (f *Funnel) Modal() *Modal { return f.modal }

// Open shows the modal and returns the funnel to idle.
func (f *Funnel) Open() {
	f.modal.Open()
	f.mu.Lock()
	if !f.inFlight {
		f.state = StateIdle
		f.lastErr = nil
	}
	f.mu.Unlock()
}

// Close hides the modal and clears the form. An in-flight submit keeps running.
func (f *Funnel) Close() {
	f.modal.Close()
	f.form.Reset()
}

// State returns the current state.
func (f *Funnel) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the error of the last failed submit.
func (f *Funnel) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Submit stores the signup and, once stored, requests the welcome email,
// shows the toast and the invite panel, then closes the modal and resets the
// form. The welcome email outcome never changes the result. On failure the
// error is presented and the modal and form are left untouched.
func (f *Funnel) Submit(ctx context.Context) error {
	if !f.begin() {
		return ErrSubmitInFlight
	}

	signup := f.form.Request(f.modal.OpenedAt())

	if verdict := f.guard.Evaluate(antispam.Submission{Honeypot: signup.Company, OpenedAt: signup.OpenedAt}); verdict.RejectSilently() {
		f.log.Debug("submission screened", zap.String("reason", string(verdict.Reason)))
		f.succeed(&SubmitResult{})
		return nil
	}

	res, err := f.backend.Submit(ctx, signup)
	if err != nil {
		f.fail(err)
		return err
	}

	// A redirect-only answer means the server screened the submission.
	if res.Redirect != "" && len(res.Data) == 0 {
		f.succeed(res)
		return nil
	}

	notified, err := f.backend.Notify(ctx, signup.Email, signup.FirstName)
	switch {
	case err != nil:
		f.log.Warn("welcome email request failed", zap.Error(err))
	case !notified.OK:
		f.log.Warn("welcome email not sent", zap.String("stage", notified.Stage), zap.String("error", notified.Error))
	}

	f.succeed(res)
	return nil
}

func (f *Funnel) begin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return false
	}
	f.inFlight = true
	f.state = StateSubmitting
	f.lastErr = nil
	return true
}

func (f *Funnel) succeed(res *SubmitResult) {
	if res.AlreadyOnWaitlist {
		f.presenter.Toast(toastReturningTitle, toastReturning)
	} else {
		f.presenter.Toast(toastTitle, toastMessage)
	}
	if f.inviteURL != "" {
		f.presenter.ShowInvite(f.inviteURL)
	}
	f.modal.Close()
	f.form.Reset()

	f.mu.Lock()
	f.state = StateSuccess
	f.inFlight = false
	f.mu.Unlock()
}

func (f *Funnel) fail(err error) {
	f.presenter.ShowError(err.Error())

	f.mu.Lock()
	f.state = StateError
	f.lastErr = err
	f.inFlight = false
	f.mu.Unlock()
}
