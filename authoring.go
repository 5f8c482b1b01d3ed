package pressroom

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/eringen/pressroom/blog"
	"github.com/eringen/pressroom/mdx"
	"github.com/eringen/pressroom/store"
)

// Authoring actions, used in rate limit keys and logs.
const (
	actionCreate  = "create"
	actionUpdate  = "update"
	actionPublish = "publish"
	actionDelete  = "delete"
)

// Authoring runs post mutations: authorization, admission, validation,
// the store write and invalidation, in that order.
type Authoring struct {
	store       store.Store
	limiter     *Limiter
	coordinator *Coordinator
	limit       int
	window      time.Duration
	logger      zerolog.Logger
}

func NewAuthoring(s store.Store, limiter *Limiter, coordinator *Coordinator, limit int, window time.Duration, logger zerolog.Logger) *Authoring {
	return &Authoring{
		store:       s,
		limiter:     limiter,
		coordinator: coordinator,
		limit:       limit,
		window:      window,
		logger:      logger.With().Str("component", "authoring").Logger(),
	}
}

func (a *Authoring) admit(ctx context.Context, action, actorID string) error {
	if actorID == "" {
		return blog.ErrUnauthorized
	}
	return a.limiter.Admit(ctx, actionKey(action, actorID), a.limit, a.window)
}

// Create stores a new draft authored by actorID.
func (a *Authoring) Create(ctx context.Context, actorID string, form url.Values) (blog.Post, error) {
	if err := a.admit(ctx, actionCreate, actorID); err != nil {
		return blog.Post{}, err
	}
	in, err := parseInput(form)
	if err != nil {
		return blog.Post{}, err
	}
	p, err := a.store.Create(ctx, in, actorID)
	if err != nil {
		return blog.Post{}, fmt.Errorf("create post: %w", err)
	}
	a.logger.Info().Str("actor", actorID).Str("id", p.ID).Str("slug", p.Slug).Msg("post created")
	a.coordinator.Invalidate(ctx, createdTargets()...)
	return p, nil
}

// Update replaces the content fields of post id.
func (a *Authoring) Update(ctx context.Context, actorID, id string, form url.Values) (blog.Post, error) {
	if err := a.admit(ctx, actionUpdate, actorID); err != nil {
		return blog.Post{}, err
	}
	in, err := parseInput(form)
	if err != nil {
		return blog.Post{}, err
	}
	before, err := a.store.FindByID(ctx, id)
	if err != nil {
		return blog.Post{}, fmt.Errorf("update post: %w", err)
	}
	p, err := a.store.Update(ctx, id, in)
	if err != nil {
		return blog.Post{}, fmt.Errorf("update post: %w", err)
	}
	a.logger.Info().Str("actor", actorID).Str("id", p.ID).Str("slug", p.Slug).Msg("post updated")
	a.coordinator.Invalidate(ctx, updatedTargets(before, p)...)
	return p, nil
}

// TogglePublish flips post id between draft and published.
func (a *Authoring) TogglePublish(ctx context.Context, actorID, id string) (blog.Post, error) {
	if err := a.admit(ctx, actionPublish, actorID); err != nil {
		return blog.Post{}, err
	}
	p, err := a.store.TogglePublish(ctx, id)
	if err != nil {
		return blog.Post{}, fmt.Errorf("toggle publish: %w", err)
	}
	a.logger.Info().Str("actor", actorID).Str("id", p.ID).Stringer("state", p.State()).Msg("post state changed")
	a.coordinator.Invalidate(ctx, publishTargets(p)...)
	return p, nil
}

// Delete permanently removes post id.
func (a *Authoring) Delete(ctx context.Context, actorID, id string) error {
	if err := a.admit(ctx, actionDelete, actorID); err != nil {
		return err
	}
	p, err := a.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	a.logger.Info().Str("actor", actorID).Str("id", p.ID).Str("slug", p.Slug).Msg("post deleted")
	a.coordinator.Invalidate(ctx, deletedTargets(p)...)
	return nil
}

// parseInput validates the form and checks that the content only uses
// registered components.
func parseInput(form url.Values) (blog.Input, error) {
	in, err := blog.ParseInput(form)
	if err != nil {
		return blog.Input{}, err
	}
	if _, err := mdx.Parse(in.Content); err != nil {
		return blog.Input{}, contentError(err)
	}
	return in, nil
}

func contentError(err error) error {
	var unknown *mdx.UnknownComponentError
	if errors.As(err, &unknown) {
		return &blog.ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("Content uses an unknown component: %s.", unknown.Name),
		}
	}
	var invalid *mdx.ComponentError
	if errors.As(err, &invalid) {
		return &blog.ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("Content has an invalid %s on line %d: %s.", invalid.Name, invalid.Line, invalid.Reason),
		}
	}
	return &blog.ValidationError{Field: "content", Message: "Content could not be parsed."}
}
