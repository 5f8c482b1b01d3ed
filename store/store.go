// Package store is the persistence boundary for posts. It owns the
// canonical representation; every other package works on copies.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/eringen/pressroom/blog"
)

// Order selects the sort order of List.
type Order int

const (
	OrderPublishedDesc Order = iota
	OrderCreatedDesc
	OrderUpdatedDesc
)

// ListOptions filters and orders List results.
type ListOptions struct {
	PublishedOnly bool
	Order         Order
	Limit         int // 0 means no limit
}

// Store is implemented by every post backend. All writes are atomic
// single-document operations. Lookups of a missing post fail with
// blog.ErrNotFound and slug collisions with blog.ErrDuplicateSlug.
type Store interface {
	// Create inserts a new draft authored by authorID.
	Create(ctx context.Context, in blog.Input, authorID string) (blog.Post, error)
	// Update replaces the content fields of an existing post.
	Update(ctx context.Context, id string, in blog.Input) (blog.Post, error)
	// TogglePublish flips the published flag under blog.TogglePublish rules.
	TogglePublish(ctx context.Context, id string) (blog.Post, error)
	// Delete permanently removes a post and returns what was removed.
	Delete(ctx context.Context, id string) (blog.Post, error)
	FindByID(ctx context.Context, id string) (blog.Post, error)
	// FindBySlug looks a post up by slug. Public callers pass publishedOnly.
	FindBySlug(ctx context.Context, slug string, publishedOnly bool) (blog.Post, error)
	List(ctx context.Context, opts ListOptions) ([]blog.Post, error)
	Close() error
}

// Open returns the backend for databaseURL: PostgreSQL for postgres:// and
// postgresql:// URLs, SQLite (a file path or sqlite:// URL) otherwise.
func Open(ctx context.Context, databaseURL string) (Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		s, err := NewPostgres(ctx, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	default:
		s, err := NewSQLite(ctx, strings.TrimPrefix(databaseURL, "sqlite://"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	}
}

func orderClause(o Order) string {
	switch o {
	case OrderCreatedDesc:
		return "ORDER BY created_at DESC, id"
	case OrderUpdatedDesc:
		return "ORDER BY updated_at DESC, id"
	default:
		return "ORDER BY published_at DESC NULLS LAST, created_at DESC, id"
	}
}
