package client

import (
	"fmt"
	"io"
	"sync"
)

// Presenter surfaces funnel outcomes to a person.
type Presenter interface {
	Toast(title, message string)
	ShowInvite(url string)
	ShowError(message string)
}

// TextPresenter writes outcomes as plain lines, for terminals and logs.
type TextPresenter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTextPresenter returns a presenter writing to out.
func NewTextPresenter(out io.Writer) *TextPresenter {
	if out == nil {
		out = io.Discard
	}
	return &TextPresenter{out: out}
}

func (p *TextPresenter) Toast(title, message string) {
	p.printf("✔ %s: %s\n", title, message)
}

func (p *TextPresenter) ShowInvite(url string) {
	p.printf("Join our Discord to connect with early adopters and get exclusive Spryntr updates:\n  %s\n", url)
}

func (p *TextPresenter) ShowError(message string) {
	p.printf("✖ %s\n", message)
}

func (p *TextPresenter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

type nopPresenter struct{}

func (nopPresenter) Toast(string, string) {}
func (nopPresenter) ShowInvite(string)    {}
func (nopPresenter) ShowError(string)     {}
