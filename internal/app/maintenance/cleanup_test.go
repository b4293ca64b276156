package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/spryntr/waitlist/internal/cache"
	"github.com/spryntr/waitlist/internal/database/testutil"
	"github.com/spryntr/waitlist/internal/models"
	"github.com/spryntr/waitlist/internal/monitoring"
	"github.com/spryntr/waitlist/internal/services"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

type failingPruner struct{ err error }

func (f failingPruner) CleanupOlderThan(context.Context, int) (int64, error) { return 0, f.err }

type failingPurger struct{ err error }

func (f failingPurger) PurgeExpired(context.Context, time.Time) (int64, error) { return 0, f.err }

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := &fixedClock{current: time.Now().UTC()}

	store := cache.NewDatabaseStore(db)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "blog:posts", []byte("[]"), time.Minute))
	require.NoError(t, db.Model(&models.CacheEntry{}).Where("1 = 1").
		Update("expires_at", clock.Now().Add(-time.Hour)).Error)

	events, err := services.NewSignupEventService(db)
	require.NoError(t, err)
	old := models.SignupEvent{
		BaseModel: models.BaseModel{CreatedAt: clock.Now().AddDate(0, 0, -10)},
		Email:     "old@example.com",
		Outcome:   models.SignupOutcomeCreated,
		Payload:   []byte(`{}`),
	}
	require.NoError(t, db.Create(&old).Error)

	c := NewCleaner(store, events,
		WithNow(clock.Now),
		WithEventRetentionDays(7),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)
	require.NoError(t, c.RunOnce(ctx))

	var cached int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&cached).Error)
	require.Zero(t, cached)

	var remaining int64
	require.NoError(t, db.Model(&models.SignupEvent{}).Count(&remaining).Error)
	require.Zero(t, remaining)
}

func TestCleanerKeepsEventsWithoutRetention(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	events, err := services.NewSignupEventService(db)
	require.NoError(t, err)

	_, err = events.Record(context.Background(), services.SignupEventInput{Email: "a@b.co", Outcome: models.SignupOutcomeCreated})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.SignupEvent{}).Where("1 = 1").
		Update("created_at", time.Now().AddDate(-1, 0, 0)).Error)

	c := NewCleaner(nil, events)
	require.NoError(t, c.RunOnce(context.Background()))

	var remaining int64
	require.NoError(t, db.Model(&models.SignupEvent{}).Count(&remaining).Error)
	require.Equal(t, int64(1), remaining)
}

func TestCleanerRunOnceCollectsErrors(t *testing.T) {
	monitoring.SetModule(monitoring.NewModule())
	purgeErr := errors.New("purge failed")
	pruneErr := errors.New("prune failed")

	c := NewCleaner(failingPurger{err: purgeErr}, failingPruner{err: pruneErr}, WithEventRetentionDays(30))
	err := c.RunOnce(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, purgeErr)
	require.ErrorIs(t, err, pruneErr)
	require.Len(t, multierr.Errors(err), 2)

	jobs := monitoring.Snapshot().Maintenance
	require.Len(t, jobs, 2)
	for _, job := range jobs {
		require.Equal(t, monitoring.ResultFailure, job.LastStatus)
		require.Equal(t, uint64(1), job.ConsecutiveFailures)
	}
	require.Equal(t, "prune failed", jobs[1].LastError)
}

func TestCleanerStartStop(t *testing.T) {
	c := NewCleaner(cache.NewMemoryStore(), nil, WithCacheSchedule("@every 1h"))
	require.NoError(t, c.Start())
	<-c.Stop().Done()

	disabled := NewCleaner(nil, nil)
	require.NoError(t, disabled.Start())

	bad := NewCleaner(cache.NewMemoryStore(), nil, WithCacheSchedule("not a schedule"))
	require.Error(t, bad.Start())
}
