package models

import (
	"gorm.io/datatypes"
)

// Signup event outcomes.
const (
	SignupOutcomeCreated   = "created"
	SignupOutcomeDuplicate = "duplicate"
)

// SignupEvent is an append-only audit row written once per accepted
// submission, whether it created a record or hit an existing one.
type SignupEvent struct {
	BaseModel

	SignupID   string         `gorm:"size:36;index" json:"signup_id"`
	Email      string         `gorm:"size:320;index" json:"email"`
	Outcome    string         `gorm:"size:32;index" json:"outcome"`
	Source     string         `gorm:"size:120" json:"source,omitempty"`
	Payload    datatypes.JSON `json:"payload"`
	IP         string         `gorm:"size:64" json:"ip,omitempty"`
	UserAgent  string         `gorm:"size:512" json:"user_agent,omitempty"`
	Browser    string         `gorm:"size:64" json:"browser,omitempty"`
	OS         string         `gorm:"column:os;size:64" json:"os,omitempty"`
	DeviceType string         `gorm:"size:32" json:"device_type,omitempty"`
	IsBot      bool           `json:"is_bot"`
}

// TableName keeps the table name stable across naming strategy changes.
func (SignupEvent) TableName() string {
	return "waitlist_signup_events"
}
