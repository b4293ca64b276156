package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/spryntr/waitlist/internal/models"
	"github.com/spryntr/waitlist/internal/monitoring"
)

const defaultDatabaseTimeout = 2 * time.Second

// Database pings the signup store and confirms the signups table exists.
// An unmigrated schema is degraded rather than down.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	if timeout <= 0 {
		timeout = defaultDatabaseTimeout
	}
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}

		start := time.Now()
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(probeCtx)
		}
		if err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}

		if !db.WithContext(probeCtx).Migrator().HasTable(&models.WaitlistSignup{}) {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "waitlist schema not migrated",
				Duration: time.Since(start),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
	})
}
