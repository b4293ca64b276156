package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spryntr/waitlist/internal/cache"
	"github.com/spryntr/waitlist/internal/cms"
	"github.com/spryntr/waitlist/pkg/logger"
	"github.com/spryntr/waitlist/pkg/metrics"
)

const (
	blogPostsCacheKey = "blog:posts"
	defaultBlogTTL    = 5 * time.Minute
)

// BlogService serves the blog feed through a read-through cache. Concurrent
// misses share one upstream fetch.
type BlogService struct {
	client cms.Client
	store  cache.Store
	ttl    time.Duration
	group  singleflight.Group
	log    *zap.Logger
}

// NewBlogService constructs a BlogService. A nil store disables caching.
func NewBlogService(client cms.Client, store cache.Store, ttl time.Duration) (*BlogService, error) {
	if client == nil {
		return nil, errors.New("blog service: cms client is required")
	}
	if ttl <= 0 {
		ttl = defaultBlogTTL
	}
	return &BlogService{
		client: client,
		store:  store,
		ttl:    ttl,
		log:    logger.WithModule("blog"),
	}, nil
}

// ListPosts returns published posts, newest first. Upstream failures yield
// an empty list so the blog page still renders.
func (s *BlogService) ListPosts(ctx context.Context) []cms.Post {
	ctx = ensureContext(ctx)

	if posts, ok := s.cached(ctx); ok {
		metrics.BlogCache.WithLabelValues("hit").Inc()
		return posts
	}

	value, err, _ := s.group.Do(blogPostsCacheKey, func() (interface{}, error) {
		// Detach so one caller's cancellation does not fail the others.
		detached := context.WithoutCancel(ctx)
		posts, err := s.client.Posts(detached)
		if err != nil {
			return nil, err
		}
		s.remember(detached, posts)
		return posts, nil
	})
	if err != nil {
		metrics.BlogCache.WithLabelValues("error").Inc()
		if errors.Is(err, cms.ErrNotConfigured) {
			s.log.Debug("blog feed disabled: cms not configured")
		} else {
			s.log.Error("error fetching blog posts", zap.Error(err))
		}
		return []cms.Post{}
	}

	metrics.BlogCache.WithLabelValues("miss").Inc()
	posts := value.([]cms.Post)
	if posts == nil {
		return []cms.Post{}
	}
	return posts
}

func (s *BlogService) cached(ctx context.Context) ([]cms.Post, bool) {
	if s.store == nil {
		return nil, false
	}
	raw, ok, err := s.store.Get(ctx, blogPostsCacheKey)
	if err != nil {
		s.log.Warn("blog cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var posts []cms.Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		s.log.Warn("discarding corrupt blog cache entry", zap.Error(err))
		return nil, false
	}
	return posts, true
}

func (s *BlogService) remember(ctx context.Context, posts []cms.Post) {
	if s.store == nil {
		return
	}
	raw, err := json.Marshal(posts)
	if err != nil {
		s.log.Warn("blog cache encode failed", zap.Error(err))
		return
	}
	if err := s.store.Set(ctx, blogPostsCacheKey, raw, s.ttl); err != nil {
		s.log.Warn("blog cache write failed", zap.Error(err))
	}
}
