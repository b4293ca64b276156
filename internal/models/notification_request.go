package models

// NotificationRequest is the payload for the welcome email dispatcher.
type NotificationRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}
