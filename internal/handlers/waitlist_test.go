package handlers

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spryntr/waitlist/internal/antispam"
	"github.com/spryntr/waitlist/internal/models"
	"github.com/spryntr/waitlist/internal/services"
)

const adaPayload = `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","org":"Analytical Engines","sector":"Education","country":"Nigeria"}`

func TestWaitlistSubmitCreatesThenAcknowledgesDuplicate(t *testing.T) {
	svc, _, db := newTestWaitlist(t, services.WaitlistConfig{StrictEmail: true}, nil)
	handler, err := NewWaitlistHandler(svc)
	require.NoError(t, err)

	rec := perform(t, handler.Submit, http.MethodPost, "/waitlist", adaPayload)
	requireStatus(t, rec, http.StatusCreated)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["ok"])
	require.NotContains(t, body, "alreadyOnWaitlist")
	data := body["data"].(map[string]any)
	require.Equal(t, "ada@example.com", data["email"])

	rec = perform(t, handler.Submit, http.MethodPost, "/waitlist", adaPayload)
	requireStatus(t, rec, http.StatusOK)
	body = decodeBody(t, rec)
	require.Equal(t, true, body["ok"])
	require.Equal(t, true, body["alreadyOnWaitlist"])

	var stored models.WaitlistSignup
	require.NoError(t, db.Where("email = ?", "ada@example.com").First(&stored).Error)
	require.Equal(t, 2, stored.SignupCount)

	var events int64
	require.NoError(t, db.Model(&models.SignupEvent{}).Count(&events).Error)
	require.Equal(t, int64(2), events)
}

func TestWaitlistSubmitRejectPolicyConflicts(t *testing.T) {
	svc, _, _ := newTestWaitlist(t, services.WaitlistConfig{DuplicatePolicy: services.DuplicateReject}, nil)
	handler, err := NewWaitlistHandler(svc)
	require.NoError(t, err)

	requireStatus(t, perform(t, handler.Submit, http.MethodPost, "/waitlist", adaPayload), http.StatusCreated)

	rec := perform(t, handler.Submit, http.MethodPost, "/waitlist", adaPayload)
	requireStatus(t, rec, http.StatusConflict)
	body := decodeBody(t, rec)
	require.Equal(t, false, body["ok"])
	require.Equal(t, "Already on the waitlist", body["error"])
}

func TestWaitlistSubmitValidation(t *testing.T) {
	svc, _, db := newTestWaitlist(t, services.WaitlistConfig{StrictEmail: true}, nil)
	handler, err := NewWaitlistHandler(svc)
	require.NoError(t, err)

	cases := []struct {
		name  string
		body  string
		error string
		field string
	}{
		{"missing last name", `{"first_name":"Ada","email":"ada@example.com"}`, "Missing or invalid field: last_name", "last_name"},
		{"non-string first name", `{"first_name":42,"last_name":"L","email":"ada@example.com"}`, "Missing or invalid field: first_name", "first_name"},
		{"malformed email", `{"first_name":"Ada","last_name":"L","email":"not-an-email"}`, "Invalid email", "email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := perform(t, handler.Submit, http.MethodPost, "/waitlist", tc.body)
			requireStatus(t, rec, http.StatusBadRequest)
			body := decodeBody(t, rec)
			require.Equal(t, false, body["ok"])
			require.Equal(t, tc.error, body["error"])
			require.Equal(t, tc.field, body["field"])
		})
	}

	rec := perform(t, handler.Submit, http.MethodPost, "/waitlist", `{"first_name":`)
	requireStatus(t, rec, http.StatusBadRequest)
	require.Equal(t, "invalid JSON payload", decodeBody(t, rec)["error"])

	var count int64
	require.NoError(t, db.Model(&models.WaitlistSignup{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestWaitlistSubmitAlternateSchema(t *testing.T) {
	svc, _, _ := newTestWaitlist(t, services.WaitlistConfig{Schema: services.SchemaAlternate}, nil)
	handler, err := NewWaitlistHandler(svc)
	require.NoError(t, err)

	rec := perform(t, handler.Submit, http.MethodPost, "/waitlist", `{"org_name":"Acme","email":"not-an-email"}`)
	requireStatus(t, rec, http.StatusBadRequest)
	require.Equal(t, "Invalid email", decodeBody(t, rec)["error"])

	rec = perform(t, handler.Submit, http.MethodPost, "/waitlist", `{"org_name":"Acme","contact_name":"Grace Hopper","email":"grace@acme.test"}`)
	requireStatus(t, rec, http.StatusCreated)
}

func TestWaitlistSubmitSilentlyDropsSpam(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	guard := antispam.NewGuard(antispam.Config{Enabled: true, MinFillTime: 2 * time.Second}, antispam.WithClock(func() time.Time { return now }))
	svc, _, db := newTestWaitlist(t, services.WaitlistConfig{SpamRedirect: "/thanks"}, guard)
	handler, err := NewWaitlistHandler(svc)
	require.NoError(t, err)

	honeypot := `{"first_name":"Bot","last_name":"Bot","email":"bot@example.com","company":"Spam Inc"}`
	tooFast := `{"first_name":"Bot","last_name":"Bot","email":"bot@example.com","t":` + strconv.FormatInt(now.Add(-500*time.Millisecond).UnixMilli(), 10) + `}`
	// Spam is screened before validation, so even an invalid body is acknowledged.
	invalid := `{"company":"Spam Inc"}`
	numericHoneypot := `{"first_name":"B","last_name":"Ot","email":"bot@example.com","company":12345}`
	unreadableStamp := `{"first_name":"Bot","last_name":"Bot","email":"bot@example.com","t":"abc"}`

	for _, payload := range []string{honeypot, tooFast, invalid, numericHoneypot, unreadableStamp} {
		rec := perform(t, handler.Submit, http.MethodPost, "/waitlist", payload)
		requireStatus(t, rec, http.StatusOK)
		body := decodeBody(t, rec)
		require.Equal(t, true, body["ok"])
		require.Equal(t, "/thanks", body["redirect"])
		require.NotContains(t, body, "data")
	}

	var count int64
	require.NoError(t, db.Model(&models.WaitlistSignup{}).Count(&count).Error)
	require.Zero(t, count)

	human := `{"first_name":"Ada","last_name":"L","email":"ada@example.com","t":` + strconv.FormatInt(now.Add(-5*time.Second).UnixMilli(), 10) + `}`
	requireStatus(t, perform(t, handler.Submit, http.MethodPost, "/waitlist", human), http.StatusCreated)
}

func TestWaitlistStatus(t *testing.T) {
	svc, _, _ := newTestWaitlist(t, services.WaitlistConfig{}, nil)
	handler, err := NewWaitlistHandler(svc)
	require.NoError(t, err)

	rec := perform(t, handler.Status, http.MethodGet, "/waitlist", "")
	requireStatus(t, rec, http.StatusOK)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["ok"])
	require.NotEmpty(t, body["message"])
	require.Equal(t, "/waitlist", body["route"])
}

func TestNewWaitlistHandlerRequiresService(t *testing.T) {
	_, err := NewWaitlistHandler(nil)
	require.Error(t, err)
}
