package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/api/", WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func validSignup() Signup {
	return Signup{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Org: "Analytical Engines", Sector: "Education", Country: "Nigeria"}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New("ftp://example.com")
	require.Error(t, err)

	_, err = New("://")
	require.Error(t, err)
}

func TestSubmitValidatesBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
	})

	cases := map[string]Signup{
		"first_name": {LastName: "L", Email: "a@b.co"},
		"last_name":  {FirstName: "A", Email: "a@b.co"},
		"email":      {FirstName: "A", LastName: "L", Email: "not-an-email"},
	}
	for field, signup := range cases {
		_, err := c.Submit(context.Background(), signup)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, field)
		require.Equal(t, field, verr.Field)
	}
	require.Zero(t, calls.Load())
}

func TestSubmitCreatedAndDuplicate(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/waitlist" || r.Header.Get("Content-Type") != "application/json" {
			writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "unexpected request"})
			return
		}

		var got Signup
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid JSON payload"})
			return
		}
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "data": map[string]any{"email": got.Email}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "alreadyOnWaitlist": true})
	})

	res, err := c.Submit(context.Background(), validSignup())
	require.NoError(t, err)
	require.True(t, res.Created)
	require.JSONEq(t, `{"email":"ada@example.com"}`, string(res.Data))

	res, err = c.Submit(context.Background(), validSignup())
	require.NoError(t, err)
	require.False(t, res.Created)
	require.True(t, res.AlreadyOnWaitlist)
}

func TestSubmitSurfacesServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Missing or invalid field: last_name", "code": "VALIDATION_ERROR", "field": "last_name"})
	})

	_, err := c.Submit(context.Background(), validSignup())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "last_name", apiErr.Field)
	require.EqualError(t, err, "Missing or invalid field: last_name")
}

func TestSubmitFallbackMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Submit(context.Background(), validSignup())
	require.EqualError(t, err, "Failed to join waitlist")

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>oops</html>"))
	})
	_, err = c.Submit(context.Background(), validSignup())
	require.EqualError(t, err, "unexpected response (500)")
}

func TestNotify(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if r.URL.Path != "/api/waitlist/notify" || json.NewDecoder(r.Body).Decode(&body) != nil {
			writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "unexpected request"})
			return
		}
		if body["email"] == "bounce@example.com" {
			writeJSON(w, http.StatusOK, map[string]any{"ok": false, "stage": "provider", "error": "rejected"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": "msg_" + body["first_name"]})
	})

	res, err := c.Notify(context.Background(), "ada@example.com", "Ada")
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, "msg_Ada", res.ID)

	res, err = c.Notify(context.Background(), "bounce@example.com", "")
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, "provider", res.Stage)

	_, err = c.Notify(context.Background(), " ", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestNotifyConfigError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "stage": "config", "error": "RESEND_API_KEY missing"})
	})

	_, err := c.Notify(context.Background(), "ada@example.com", "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "config", apiErr.Stage)
	require.Equal(t, "RESEND_API_KEY missing", apiErr.Message)
}

func TestStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "waitlist is accepting signups"})
	})

	msg, err := c.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, "waitlist is accepting signups", msg)
}

func TestSubmitHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Submit(ctx, validSignup())
	require.True(t, errors.Is(err, context.Canceled))
}
