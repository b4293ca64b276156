// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/spryntr/waitlist/internal/database"
)

var dbSeq atomic.Uint64

// TestDBOption customises MustOpenTestDB.
type TestDBOption func(*options)

type options struct {
	migrate bool
}

// WithAutoMigrate creates the schema after opening.
func WithAutoMigrate() TestDBOption {
	return func(o *options) { o.migrate = true }
}

// MustOpenTestDB opens a private in-memory SQLite database that is closed
// when the test ends.
func MustOpenTestDB(t testing.TB, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	dsn := fmt.Sprintf("file:waitlist_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	if o.migrate {
		require.NoError(t, database.Migrate(db))
	}
	return db
}
