package checks

import (
	"context"

	"github.com/spryntr/waitlist/internal/monitoring"
)

// Email reports degraded when no mail transport credential is configured.
// Signups still succeed in that state; only the welcome email is skipped.
func Email(configured bool, provider string) monitoring.Check {
	return monitoring.NewCheck("email", func(context.Context) monitoring.ProbeResult {
		if configured {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: provider}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: provider + " not configured"}
	})
}
