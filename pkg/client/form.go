package client

import (
	"fmt"
	"sync"
	"time"
)

// Field names a form input.
type Field string

const (
	FieldFirstName Field = "first_name"
	FieldLastName  Field = "last_name"
	FieldEmail     Field = "email"
	FieldOrg       Field = "org"
	FieldSector    Field = "sector"
	FieldCountry   Field = "country"
	// FieldCompany is the hidden honeypot input. People never see it.
	FieldCompany Field = "company"
)

// VisibleFields lists the inputs shown to a person, in display order.
var VisibleFields = []Field{FieldFirstName, FieldLastName, FieldEmail, FieldOrg, FieldSector, FieldCountry}

// Choices offered by the select inputs.
var (
	Sectors   = []string{"Public sector", "Healthcare", "Education", "Finance", "Energy", "Other"}
	Countries = []string{"Nigeria", "Ghana", "Kenya", "South Africa", "Other"}
)

// Label returns the prompt shown next to a field.
func (f Field) Label() string {
	switch f {
	case FieldFirstName:
		return "First name"
	case FieldLastName:
		return "Last name"
	case FieldEmail:
		return "Email"
	case FieldOrg:
		return "Organization/Institution"
	case FieldSector:
		return "Sector"
	case FieldCountry:
		return "Country"
	default:
		return string(f)
	}
}

// Choices returns the allowed values of a select input, or nil for free text.
func (f Field) Choices() []string {
	switch f {
	case FieldSector:
		return Sectors
	case FieldCountry:
		return Countries
	}
	return nil
}

// Form holds the in-progress field values. The zero value is ready to use.
type Form struct {
	mu     sync.RWMutex
	values map[Field]string
}

// Set stores a field value.
func (f *Form) Set(field Field, value string) error {
	if !knownField(field) {
		return fmt.Errorf("client: unknown form field %q", field)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = make(map[Field]string)
	}
	f.values[field] = value
	return nil
}

// Value returns the current value of field.
func (f *Form) Value(field Field) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values[field]
}

// Reset clears every field.
func (f *Form) Reset() {
	f.mu.Lock()
	f.values = nil
	f.mu.Unlock()
}

// Request builds the signup payload. A zero openedAt omits the timestamp.
func (f *Form) Request(openedAt time.Time) Signup {
	f.mu.RLock()
	defer f.mu.RUnlock()

	s := Signup{
		FirstName: f.values[FieldFirstName],
		LastName:  f.values[FieldLastName],
		Email:     f.values[FieldEmail],
		Org:       f.values[FieldOrg],
		Sector:    f.values[FieldSector],
		Country:   f.values[FieldCountry],
		Company:   f.values[FieldCompany],
	}
	if !openedAt.IsZero() {
		ms := openedAt.UnixMilli()
		s.OpenedAt = &ms
	}
	return s
}

func knownField(field Field) bool {
	if field == FieldCompany {
		return true
	}
	for _, f := range VisibleFields {
		if f == field {
			return true
		}
	}
	return false
}

// Modal tracks whether the signup form is shown and when it was opened.
// Each Funnel owns its own Modal.
type Modal struct {
	mu       sync.Mutex
	open     bool
	openedAt time.Time
	now      func() time.Time
}

// NewModal returns a closed modal using clock, or time.Now when nil.
func NewModal(clock func() time.Time) *Modal {
	if clock == nil {
		clock = time.Now
	}
	return &Modal{now: clock}
}

// Open shows the modal and stamps the open time. Reopening an open modal
// keeps the original stamp.
func (m *Modal) Open() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		return
	}
	m.open = true
	m.openedAt = m.now()
}

// Close hides the modal. It does not cancel an in-flight submit.
func (m *Modal) Close() {
	m.mu.Lock()
	m.open = false
	m.mu.Unlock()
}

// IsOpen reports whether the modal is shown.
func (m *Modal) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// OpenedAt returns when the modal was last opened.
func (m *Modal) OpenedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openedAt
}
