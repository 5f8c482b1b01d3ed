package pressroom

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/pressroom/blog"
	"github.com/eringen/pressroom/store"
)

// PostCache is an in-memory read cache of published posts with TTL. It holds
// the published listing and individually fetched articles, and is a Sink
// for the invalidation coordinator.
type PostCache struct {
	mu       sync.RWMutex
	posts    []blog.Post
	fetched  time.Time
	articles map[string]cachedArticle
	gen      uint64 // bumped by Invalidate and Purge
	ttl      time.Duration
	store    store.Store
	now      func() time.Time
}

type cachedArticle struct {
	post    blog.Post
	fetched time.Time
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s store.Store, ttl time.Duration) *PostCache {
	return &PostCache{
		store:    s,
		ttl:      ttl,
		articles: make(map[string]cachedArticle),
		now:      time.Now,
	}
}

func (c *PostCache) fresh(fetched time.Time) bool {
	return c.now().Sub(fetched) < c.ttl
}

func (c *PostCache) listingValid() bool {
	return c.posts != nil && c.fresh(c.fetched)
}

// ListPublished returns published posts, newest publication first. It tries
// a read lock first; only takes a write lock if a reload is needed.
func (c *PostCache) ListPublished(ctx context.Context) ([]blog.Post, error) {
	c.mu.RLock()
	if c.listingValid() {
		posts := c.posts
		c.mu.RUnlock()
		return posts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listingValid() {
		return c.posts, nil
	}
	posts, err := c.store.List(ctx, store.ListOptions{PublishedOnly: true, Order: store.OrderPublishedDesc})
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []blog.Post{}
	}
	c.posts = posts
	c.fetched = c.now()
	return posts, nil
}

// Article returns the published post with slug. Misses are not cached, so a
// post that gets published shows up without waiting for the TTL. A fetch
// that overlaps an invalidation is returned but not cached.
func (c *PostCache) Article(ctx context.Context, slug string) (blog.Post, error) {
	c.mu.RLock()
	a, ok := c.articles[slug]
	gen := c.gen
	c.mu.RUnlock()
	if ok && c.fresh(a.fetched) {
		return a.post, nil
	}

	p, err := c.store.FindBySlug(ctx, slug, true)
	if err != nil {
		return blog.Post{}, err
	}
	c.mu.Lock()
	if c.gen == gen {
		c.articles[slug] = cachedArticle{post: p, fetched: c.now()}
	}
	c.mu.Unlock()
	return p, nil
}

// Invalidate implements Sink. Listing targets drop the listing; article
// targets drop that article.
func (c *PostCache) Invalidate(_ context.Context, targets []Target) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for _, t := range targets {
		switch t {
		case TargetHome, TargetArchive, TargetSitemap, TargetFeed:
			c.posts = nil
		default:
			if slug := t.Slug(); slug != "" {
				delete(c.articles, slug)
			}
		}
	}
	return nil
}

// Purge clears everything.
func (c *PostCache) Purge() {
	c.mu.Lock()
	c.gen++
	c.posts = nil
	c.articles = make(map[string]cachedArticle)
	c.mu.Unlock()
}
