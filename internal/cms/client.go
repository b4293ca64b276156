// Package cms reads blog posts from the Sanity content API.
package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PostsQuery selects published posts, newest first.
const PostsQuery = `*[_type == "post"] | order(publishedAt desc) {
  _id,
  title,
  slug,
  publishedAt,
  excerpt,
  body,
  "author": author->name,
  "categories": categories[]->title
}`

// Defaults for the content API.
const (
	DefaultDataset    = "production"
	DefaultAPIVersion = "2023-05-03"
)

// ErrNotConfigured is returned when no project id is set.
var ErrNotConfigured = errors.New("cms: project id not configured")

// Slug is a Sanity slug object.
type Slug struct {
	Current string `json:"current"`
}

// Post is a blog post as returned by PostsQuery. Body is portable text and
// is passed through untouched.
type Post struct {
	ID          string          `json:"_id"`
	Title       string          `json:"title"`
	Slug        Slug            `json:"slug"`
	PublishedAt string          `json:"publishedAt"`
	Excerpt     string          `json:"excerpt,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
	Author      string          `json:"author,omitempty"`
	Categories  []string        `json:"categories,omitempty"`
}

// Config holds the project coordinates.
type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	UseCDN     bool
	// BaseURL overrides the derived API host.
	BaseURL string
	Timeout time.Duration
}

// Client defines the interface for reading content.
type Client interface {
	Posts(ctx context.Context) ([]Post, error)
}

type clientImpl struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a new content API client.
func NewClient(cfg Config) Client {
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &clientImpl{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *clientImpl) Posts(ctx context.Context) ([]Post, error) {
	var posts []Post
	if err := c.query(ctx, PostsQuery, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []Post{}
	}
	return posts, nil
}

func (c *clientImpl) query(ctx context.Context, groq string, out interface{}) error {
	if strings.TrimSpace(c.cfg.ProjectID) == "" {
		return ErrNotConfigured
	}

	endpoint, err := c.endpoint(groq)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("cms: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cms: query: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("cms: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cms: query failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("cms: decode response: %w", err)
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("cms: decode result: %w", err)
	}
	return nil
}

func (c *clientImpl) endpoint(groq string) (string, error) {
	base := c.cfg.BaseURL
	if base == "" {
		host := "api.sanity.io"
		if c.cfg.UseCDN {
			host = "apicdn.sanity.io"
		}
		base = fmt.Sprintf("https://%s.%s", c.cfg.ProjectID, host)
	}

	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("cms: invalid base url: %w", err)
	}
	u.Path += fmt.Sprintf("/v%s/data/query/%s", strings.TrimPrefix(c.cfg.APIVersion, "v"), c.cfg.Dataset)
	u.RawQuery = url.Values{"query": {groq}}.Encode()
	return u.String(), nil
}
