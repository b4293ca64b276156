package cms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostsQueriesDatasetAndDecodesResult(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ms":3,"query":"x","result":[{"_id":"p1","title":"Hello","slug":{"current":"hello"},"publishedAt":"2025-01-01T00:00:00Z","author":"Vem","categories":["News"],"body":[{"_type":"block"}]}]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{ProjectID: "abc123", BaseURL: srv.URL, Token: "tok"})
	posts, err := client.Posts(context.Background())
	require.NoError(t, err)

	require.Equal(t, "/v2023-05-03/data/query/production", gotPath)
	require.Equal(t, PostsQuery, gotQuery)
	require.Equal(t, "Bearer tok", gotAuth)

	require.Len(t, posts, 1)
	require.Equal(t, "p1", posts[0].ID)
	require.Equal(t, "hello", posts[0].Slug.Current)
	require.Equal(t, []string{"News"}, posts[0].Categories)
	require.JSONEq(t, `[{"_type":"block"}]`, string(posts[0].Body))
}

func TestPostsEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":null}`))
	}))
	defer srv.Close()

	posts, err := NewClient(Config{ProjectID: "abc", Dataset: "staging", BaseURL: srv.URL}).Posts(context.Background())
	require.NoError(t, err)
	require.NotNil(t, posts)
	require.Empty(t, posts)
}

func TestPostsReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad query"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(Config{ProjectID: "abc", BaseURL: srv.URL}).Posts(context.Background())
	require.ErrorContains(t, err, "status 400")
}

func TestPostsRequiresProjectID(t *testing.T) {
	_, err := NewClient(Config{}).Posts(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestEndpointDerivesHost(t *testing.T) {
	c := NewClient(Config{ProjectID: "abc", UseCDN: true}).(*clientImpl)
	endpoint, err := c.endpoint("*")
	require.NoError(t, err)
	require.Contains(t, endpoint, "https://abc.apicdn.sanity.io/v2023-05-03/data/query/production?query=")
}
