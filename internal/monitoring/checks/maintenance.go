package checks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spryntr/waitlist/internal/monitoring"
)

const defaultMaintenanceMaxAge = 36 * time.Hour

// Maintenance reports down when a background job keeps failing and degraded
// when its last run is older than maxAge. The event retention job runs daily,
// hence the default window.
func Maintenance(maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(ctx context.Context) monitoring.ProbeResult {
		summary := monitoring.Snapshot()
		if len(summary.Maintenance) == 0 {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "no maintenance runs recorded"}
		}

		status := monitoring.StatusUp
		var problems []string
		for _, job := range summary.Maintenance {
			if job.ConsecutiveFailures > 0 {
				status = monitoring.Worst(status, monitoring.StatusDown)
				problems = append(problems, fmt.Sprintf("%s: %d consecutive failures", job.Job, job.ConsecutiveFailures))
			}
			if summary.GeneratedAt.Sub(job.LastRunAt) > maxAge {
				status = monitoring.Worst(status, monitoring.StatusDegraded)
				problems = append(problems, job.Job+": stale run "+job.LastRunAt.Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{Status: status, Details: strings.Join(problems, "; ")}
	})
}
