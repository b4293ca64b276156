// Package antispam implements the honeypot and fill-time heuristics that
// screen waitlist submissions before anything is persisted.
package antispam

import (
	"strings"
	"time"
)

// DefaultMinFillTime is the shortest plausible time for a human to complete the form.
const DefaultMinFillTime = 2000 * time.Millisecond

// Reason names the heuristic that tripped. It is for logs and metrics only
// and is never returned to the submitter.
type Reason string

const (
	ReasonHoneypot         Reason = "honeypot"
	ReasonTooFast          Reason = "too_fast"
	ReasonMissingTimestamp Reason = "missing_timestamp"
)

// Submission holds the anti-spam fields of a signup.
type Submission struct {
	Honeypot string
	// HoneypotFilled marks a honeypot sent with any non-string value.
	HoneypotFilled bool
	// OpenedAt is when the form was opened, in Unix milliseconds.
	OpenedAt *int64
	// MalformedTimestamp marks a timestamp that was sent but could not be read.
	MalformedTimestamp bool
}

// Verdict is the outcome of Evaluate. A rejected submission must be answered
// as if it succeeded.
type Verdict struct {
	Allow   bool
	Reason  Reason
	Elapsed time.Duration
}

// RejectSilently reports whether the submission should be dropped.
func (v Verdict) RejectSilently() bool {
	return !v.Allow
}

// Config controls the guard.
type Config struct {
	Enabled          bool
	MinFillTime      time.Duration
	RequireTimestamp bool
}

// Option customises a Guard.
type Option func(*Guard)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// Guard evaluates submissions. It is stateless and safe for concurrent use.
type Guard struct {
	cfg Config
	now func() time.Time
}

// NewGuard builds a Guard, applying the default fill time when unset.
func NewGuard(cfg Config, opts ...Option) *Guard {
	if cfg.MinFillTime <= 0 {
		cfg.MinFillTime = DefaultMinFillTime
	}
	g := &Guard{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate returns Allow unless the honeypot is filled or the form was
// submitted faster than the minimum fill time. A timestamp in the future or
// one that cannot be read counts as too fast.
func (g *Guard) Evaluate(s Submission) Verdict {
	if g == nil || !g.cfg.Enabled {
		return Verdict{Allow: true}
	}

	if s.HoneypotFilled || strings.TrimSpace(s.Honeypot) != "" {
		return Verdict{Reason: ReasonHoneypot}
	}
	if s.MalformedTimestamp {
		return Verdict{Reason: ReasonTooFast}
	}

	if s.OpenedAt == nil {
		if g.cfg.RequireTimestamp {
			return Verdict{Reason: ReasonMissingTimestamp}
		}
		return Verdict{Allow: true}
	}

	elapsed := time.Duration(g.now().UnixMilli()-*s.OpenedAt) * time.Millisecond
	if elapsed < g.cfg.MinFillTime {
		return Verdict{Reason: ReasonTooFast, Elapsed: elapsed}
	}
	return Verdict{Allow: true, Elapsed: elapsed}
}

// MinFillTime returns the configured threshold.
func (g *Guard) MinFillTime() time.Duration {
	return g.cfg.MinFillTime
}
