package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/spryntr/waitlist/internal/cache"
	"github.com/spryntr/waitlist/internal/monitoring"
	"github.com/spryntr/waitlist/pkg/logger"
)

const (
	defaultCacheSpec = "@every 15m"
	defaultEventSpec = "@daily"

	jobCachePurge = "cache_purge"
	jobEventPrune = "event_prune"
)

// EventPruner removes signup events past their retention window.
type EventPruner interface {
	CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// Cleaner coordinates background maintenance: sweeping expired cache entries
// and, when a retention window is configured, pruning old signup events.
type Cleaner struct {
	purger    cache.Purger
	events    EventPruner
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	enabled   bool
	retention int

	cacheSchedule string
	eventSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cache expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithEventRetentionDays enables event pruning. Zero keeps events forever.
func WithEventRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithCacheSchedule overrides the cron specification for the cache sweep.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithEventSchedule overrides the cron specification for event pruning.
func WithEventSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.eventSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil dependency skips the matching job.
func NewCleaner(purger cache.Purger, events EventPruner, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		purger:        purger,
		events:        events,
		now:           time.Now,
		cacheSchedule: defaultCacheSpec,
		eventSchedule: defaultEventSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.purger != nil || cleaner.pruneEvents()
	return cleaner
}

func (c *Cleaner) pruneEvents() bool {
	return c.events != nil && c.retention > 0
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.purger != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			if _, err := c.purgeCache(context.Background()); err != nil {
				c.log.Warn("cache purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.pruneEvents() {
		if _, err := c.cron.AddFunc(c.eventSchedule, func() {
			if _, err := c.pruneEventsOnce(context.Background()); err != nil {
				c.log.Warn("signup event cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.purger != nil {
		if _, err := c.purgeCache(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if c.pruneEvents() {
		if _, err := c.pruneEventsOnce(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *Cleaner) purgeCache(ctx context.Context) (int64, error) {
	start := time.Now()
	removed, err := c.purger.PurgeExpired(ctx, c.now())
	recordRun(jobCachePurge, err, time.Since(start))
	if err == nil && removed > 0 {
		c.log.Debug("expired cache entries purged", zap.Int64("removed", removed))
	}
	return removed, err
}

func (c *Cleaner) pruneEventsOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	removed, err := c.events.CleanupOlderThan(ctx, c.retention)
	recordRun(jobEventPrune, err, time.Since(start))
	if err == nil && removed > 0 {
		c.log.Info("signup events pruned", zap.Int64("removed", removed), zap.Int("retention_days", c.retention))
	}
	return removed, err
}

func recordRun(job string, err error, elapsed time.Duration) {
	if err != nil {
		monitoring.RecordMaintenanceRun(job, monitoring.ResultFailure, err.Error(), elapsed)
		return
	}
	monitoring.RecordMaintenanceRun(job, monitoring.ResultSuccess, "", elapsed)
}
