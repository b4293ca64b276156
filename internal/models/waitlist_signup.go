package models

import "time"

// WaitlistSignup is the persisted record of a waitlist entry. Email is the
// identity: trimmed, lower-cased and unique.
type WaitlistSignup struct {
	BaseModel

	FirstName string  `gorm:"size:120" json:"first_name,omitempty"`
	LastName  string  `gorm:"size:120" json:"last_name,omitempty"`
	Email     string  `gorm:"uniqueIndex;size:320;not null" json:"email"`
	Org       *string `gorm:"size:255" json:"org"`
	Sector    *string `gorm:"size:120" json:"sector"`
	Country   *string `gorm:"size:120" json:"country"`

	OrgName     *string `gorm:"size:255" json:"org_name,omitempty"`
	ContactName *string `gorm:"size:255" json:"contact_name,omitempty"`
	Role        *string `gorm:"size:120" json:"role,omitempty"`
	Website     *string `gorm:"size:512" json:"website,omitempty"`
	Industry    *string `gorm:"size:120" json:"industry,omitempty"`
	Size        *string `gorm:"size:64" json:"size,omitempty"`
	UseCase     *string `gorm:"type:text" json:"use_case,omitempty"`
	Source      *string `gorm:"size:120" json:"source,omitempty"`
	UTMSource   *string `gorm:"column:utm_source;size:255" json:"utm_source,omitempty"`
	UTMMedium   *string `gorm:"column:utm_medium;size:255" json:"utm_medium,omitempty"`
	UTMCampaign *string `gorm:"column:utm_campaign;size:255" json:"utm_campaign,omitempty"`
	UTMTerm     *string `gorm:"column:utm_term;size:255" json:"utm_term,omitempty"`
	UTMContent  *string `gorm:"column:utm_content;size:255" json:"utm_content,omitempty"`

	IP              string    `gorm:"size:64" json:"ip,omitempty"`
	UserAgent       string    `gorm:"size:512" json:"user_agent,omitempty"`
	SignupCount     int       `gorm:"not null;default:1" json:"signup_count"`
	LastSubmittedAt time.Time `gorm:"index" json:"last_submitted_at"`
}

// TableName keeps the table name stable across naming strategy changes.
func (WaitlistSignup) TableName() string {
	return "waitlist_signups"
}

// DisplayFirstName returns the best available given name for greetings.
func (s WaitlistSignup) DisplayFirstName() string {
	if s.FirstName != "" {
		return s.FirstName
	}
	if s.ContactName != nil {
		return FirstWord(*s.ContactName)
	}
	return ""
}
