package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// SignupRequest is the transient payload posted by the waitlist form. Fields
// that arrive with a non-string JSON type are recorded as invalid rather than
// failing the whole decode, so validation can name the offending field.
type SignupRequest struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Org       string `json:"org,omitempty"`
	Sector    string `json:"sector,omitempty"`
	Country   string `json:"country,omitempty"`

	OrgName     string `json:"org_name,omitempty"`
	ContactName string `json:"contact_name,omitempty"`
	Role        string `json:"role,omitempty"`
	Website     string `json:"website,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Size        string `json:"size,omitempty"`
	UseCase     string `json:"use_case,omitempty"`
	Source      string `json:"source,omitempty"`
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`

	// Company is the honeypot. Humans never see it.
	Company string `json:"company,omitempty"`
	// OpenedAt is the modal-open timestamp in Unix milliseconds.
	OpenedAt *int64 `json:"t,omitempty"`

	invalid map[string]struct{}
	raw     json.RawMessage
}

// UnmarshalJSON decodes known fields leniently.
func (r *SignupRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = SignupRequest{raw: append(json.RawMessage(nil), data...)}
	for key, target := range r.stringFields() {
		value, ok := fields[key]
		if !ok || isJSONNull(value) {
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			r.markInvalid(key)
			continue
		}
		*target = s
	}

	if value, ok := fields["t"]; ok && !isJSONNull(value) {
		if ts, ok := parseTimestamp(value); ok {
			r.OpenedAt = &ts
		} else {
			r.markInvalid("t")
		}
	}
	return nil
}

// IsInvalid reports whether the named field was present with a non-string type.
func (r *SignupRequest) IsInvalid(field string) bool {
	_, bad := r.invalid[field]
	return bad
}

// HoneypotFilled reports whether the honeypot carried any value: a non-blank
// string, or a number, boolean, object or array.
func (r *SignupRequest) HoneypotFilled() bool {
	return strings.TrimSpace(r.Company) != "" || r.IsInvalid("company")
}

// TimestampMalformed reports whether t was sent but is not a usable number.
func (r *SignupRequest) TimestampMalformed() bool {
	return r.IsInvalid("t")
}

// Raw returns the body as received, or a re-encoding when built in code.
func (r *SignupRequest) Raw() json.RawMessage {
	if len(r.raw) > 0 {
		return r.raw
	}
	data, err := json.Marshal(r)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// Value returns the string value of a named field.
func (r *SignupRequest) Value(field string) string {
	if target, ok := r.stringFields()[field]; ok {
		return *target
	}
	return ""
}

// NormalizedEmail is the record identity: trimmed and lower-cased.
func (r *SignupRequest) NormalizedEmail() string {
	return NormalizeEmail(r.Email)
}

func (r *SignupRequest) stringFields() map[string]*string {
	return map[string]*string{
		"first_name":   &r.FirstName,
		"last_name":    &r.LastName,
		"email":        &r.Email,
		"org":          &r.Org,
		"sector":       &r.Sector,
		"country":      &r.Country,
		"org_name":     &r.OrgName,
		"contact_name": &r.ContactName,
		"role":         &r.Role,
		"website":      &r.Website,
		"industry":     &r.Industry,
		"size":         &r.Size,
		"use_case":     &r.UseCase,
		"source":       &r.Source,
		"utm_source":   &r.UTMSource,
		"utm_medium":   &r.UTMMedium,
		"utm_campaign": &r.UTMCampaign,
		"utm_term":     &r.UTMTerm,
		"utm_content":  &r.UTMContent,
		"company":      &r.Company,
	}
}

func (r *SignupRequest) markInvalid(field string) {
	if r.invalid == nil {
		r.invalid = make(map[string]struct{})
	}
	r.invalid[field] = struct{}{}
}

func isJSONNull(value json.RawMessage) bool {
	return strings.TrimSpace(string(value)) == "null"
}

// parseTimestamp accepts a JSON number or a numeric string.
func parseTimestamp(value json.RawMessage) (int64, bool) {
	var n json.Number
	if err := json.Unmarshal(value, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return 0, false
	}
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return i, err == nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FirstWord returns the first whitespace-separated word of s.
func FirstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// OptionalString maps blank strings to nil so they persist as NULL.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
