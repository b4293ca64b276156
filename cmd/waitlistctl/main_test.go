package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spryntr/waitlist/pkg/client"
)

type fakeServer struct {
	mu       sync.Mutex
	signups  []map[string]any
	notified []string
	reject   string
}

func (s *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/waitlist", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"ok":true,"message":"waitlist is accepting signups"}`))
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.reject != "" {
			msg := s.reject
			s.reject = ""
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": msg})
			return
		}
		s.signups = append(s.signups, body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true,"data":{"id":"1"}}`))
	})
	mux.HandleFunc("/api/waitlist/notify", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.notified = append(s.notified, body["email"])
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"id":"msg_42"}`))
	})
	return mux
}

func execute(t *testing.T, srvURL string, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--base-url", srvURL+"/api"))
	err := cmd.Execute()
	return out.String(), err
}

func TestStatusCommand(t *testing.T) {
	srv := httptest.NewServer((&fakeServer{}).handler())
	defer srv.Close()

	out, err := execute(t, srv.URL, "", "status")
	require.NoError(t, err)
	require.Contains(t, out, "waitlist is accepting signups")
}

func TestNotifyCommand(t *testing.T) {
	fake := &fakeServer{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	out, err := execute(t, srv.URL, "", "notify", "--email", "ada@example.com", "--first-name", "Ada")
	require.NoError(t, err)
	require.Contains(t, out, "msg_42")
	require.Equal(t, []string{"ada@example.com"}, fake.notified)

	_, err = execute(t, srv.URL, "", "notify")
	require.Error(t, err)
}

func TestRunSignupRetriesAfterError(t *testing.T) {
	fake := &fakeServer{reject: "Invalid email"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c, err := client.New(srv.URL + "/api")
	require.NoError(t, err)

	var out bytes.Buffer
	funnel := client.NewFunnel(c, client.NewTextPresenter(&out), client.WithInviteURL("https://discord.gg/spryntr"))

	input := strings.Join([]string{
		"Ada", "Lovelace", "ada@example.com", "Analytical Engines", "3", "nigeria",
		"y",
		"", "", "", "", "", "",
	}, "\n") + "\n"

	opts := &globalOptions{timeout: 5 * time.Second}
	require.NoError(t, runSignup(context.Background(), funnel, strings.NewReader(input), &out, opts))

	require.Len(t, fake.signups, 1)
	require.Equal(t, "Education", fake.signups[0]["sector"])
	require.Equal(t, "Nigeria", fake.signups[0]["country"])
	require.Equal(t, []string{"ada@example.com"}, fake.notified)
	require.Contains(t, out.String(), "✖ Invalid email")
	require.Contains(t, out.String(), "https://discord.gg/spryntr")
	require.Equal(t, client.StateSuccess, funnel.State())
}

func TestRunSignupStopsOnClosedInput(t *testing.T) {
	funnel := client.NewFunnel(nil, nil)
	err := runSignup(context.Background(), funnel, strings.NewReader("Ada\n"), &bytes.Buffer{}, &globalOptions{timeout: time.Second})
	require.ErrorIs(t, err, errInputClosed)
	require.False(t, funnel.Modal().IsOpen())
}

func TestMatchChoice(t *testing.T) {
	choice, ok := matchChoice(client.Countries, "2")
	require.True(t, ok)
	require.Equal(t, "Ghana", choice)

	_, ok = matchChoice(client.Countries, "9")
	require.False(t, ok)

	choice, ok = matchChoice(client.Sectors, "public SECTOR")
	require.True(t, ok)
	require.Equal(t, "Public sector", choice)
}
