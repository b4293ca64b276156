package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/spryntr/waitlist/internal/models"
)

func schema() []any {
	return []any{
		&models.WaitlistSignup{},
		&models.SignupEvent{},
		&models.CacheEntry{},
	}
}

// AutoMigrate creates missing tables, columns and indexes. It never drops anything.
func AutoMigrate(db *gorm.DB) error {
	for _, model := range schema() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("%T: %w", model, err)
		}
	}
	return nil
}
