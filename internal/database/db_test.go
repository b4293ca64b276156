package database

import (
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/spryntr/waitlist/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t, Config{Driver: "sqlite"})

	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("expected health query to succeed: %v", err)
	}
}

func TestOpenSQLiteFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "waitlist.db")
	db := openTestDB(t, Config{Driver: "sqlite", Path: path, MaxOpenConns: 1})

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestMigrateEnforcesUniqueEmail(t *testing.T) {
	db := openTestDB(t, Config{Driver: "sqlite", DSN: "file:migrate_unique?mode=memory&cache=shared"})

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	first := models.WaitlistSignup{FirstName: "Ada", Email: "ada@example.com", SignupCount: 1}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("create first: %v", err)
	}
	if first.ID == "" {
		t.Fatalf("expected id to be generated")
	}

	dup := models.WaitlistSignup{FirstName: "Ada", Email: "ada@example.com", SignupCount: 1}
	err := db.Create(&dup).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicated key error, got %v", err)
	}
}

func TestMigrateRejectsNilHandle(t *testing.T) {
	if err := Migrate(nil); err == nil {
		t.Fatalf("expected error for nil handle")
	}
}

func openTestDB(t *testing.T, cfg Config) *gorm.DB {
	t.Helper()

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	return db
}
