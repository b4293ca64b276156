package models

import (
	"time"
)

// CacheEntry is a keyed blob with an expiry, used by the database cache store
// for the blog feed and the shared rate limiter.
type CacheEntry struct {
	Key       string `gorm:"primaryKey;size:256"`
	Value     []byte
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName keeps cache rows out of the waitlist namespace.
func (CacheEntry) TableName() string {
	return "cache_entries"
}
