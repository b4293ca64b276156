// Package sender decides which From and To addresses a notification may use
// under the email provider's domain-verification rules.
package sender

import (
	"net/mail"
	"strings"
)

// Defaults applied by Policy.withDefaults.
const (
	DefaultSandboxDomain = "resend.dev"
	DefaultSandboxSender = "Acme <onboarding@resend.dev>"
	DefaultAccountEmail  = "vem@spryntr.co"
)

const (
	noteVerified = "Verified mode → sending to real recipient"
	noteSandbox  = "UNVERIFIED mode → sandbox from; delivering only to your account email"
)

// Policy is the static configuration the resolver works from.
type Policy struct {
	// From is the configured sender, e.g. "Spryntr <no-reply@updates.spryntr.co>".
	From string
	// VerifiedDomain, when set, must contain the From address for verified mode.
	VerifiedDomain string
	SandboxDomain  string
	SandboxSender  string
	// AccountEmail is the only recipient allowed outside verified mode.
	AccountEmail string
}

// Identity is the sender and recipient pair for one notification.
type Identity struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Verified bool   `json:"isVerifiedMode"`
	Note     string `json:"note"`
}

// Resolve computes the Identity for a requested recipient. It performs no I/O
// and keeps no state between calls.
func Resolve(p Policy, requestedTo string) Identity {
	p = p.withDefaults()

	if p.verified() {
		return Identity{
			From:     strings.TrimSpace(p.From),
			To:       strings.ToLower(strings.TrimSpace(requestedTo)),
			Verified: true,
			Note:     noteVerified,
		}
	}

	return Identity{
		From:     p.SandboxSender,
		To:       p.AccountEmail,
		Verified: false,
		Note:     noteSandbox,
	}
}

// Verified reports whether the policy allows sending to real recipients.
func (p Policy) Verified() bool {
	return p.withDefaults().verified()
}

// MalformedFrom reports whether a sender is configured but is not a valid
// address. Such a policy resolves to sandbox mode.
func (p Policy) MalformedFrom() bool {
	from := strings.TrimSpace(p.From)
	if from == "" {
		return false
	}
	_, ok := addressDomain(from)
	return !ok
}

func (p Policy) verified() bool {
	from := strings.TrimSpace(p.From)
	if from == "" {
		return false
	}

	domain, ok := addressDomain(from)
	if !ok {
		return false
	}
	if inDomain(domain, p.SandboxDomain) {
		return false
	}
	if p.VerifiedDomain != "" {
		return inDomain(domain, p.VerifiedDomain)
	}
	return true
}

func (p Policy) withDefaults() Policy {
	if strings.TrimSpace(p.SandboxDomain) == "" {
		p.SandboxDomain = DefaultSandboxDomain
	}
	if strings.TrimSpace(p.SandboxSender) == "" {
		p.SandboxSender = DefaultSandboxSender
	}
	if strings.TrimSpace(p.AccountEmail) == "" {
		p.AccountEmail = DefaultAccountEmail
	}
	p.VerifiedDomain = strings.ToLower(strings.TrimSpace(p.VerifiedDomain))
	p.SandboxDomain = strings.ToLower(strings.TrimSpace(p.SandboxDomain))
	return p
}

func addressDomain(address string) (string, bool) {
	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return "", false
	}
	at := strings.LastIndex(parsed.Address, "@")
	if at < 0 || at == len(parsed.Address)-1 {
		return "", false
	}
	return strings.ToLower(parsed.Address[at+1:]), true
}

// inDomain reports whether domain equals parent or is one of its subdomains.
func inDomain(domain, parent string) bool {
	if parent == "" {
		return false
	}
	return domain == parent || strings.HasSuffix(domain, "."+parent)
}
