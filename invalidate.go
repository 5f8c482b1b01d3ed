package pressroom

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/eringen/pressroom/blog"
)

// Target names a view whose rendering depends on post data.
type Target string

const (
	TargetHome    Target = "home"
	TargetArchive Target = "archive"
	TargetSitemap Target = "sitemap"
	TargetFeed    Target = "feed"
	TargetAdmin   Target = "admin"

	articlePrefix = "article:"
)

// ArticleTarget is the target for the public page of slug.
func ArticleTarget(slug string) Target {
	return Target(articlePrefix + slug)
}

// Slug returns the article slug of t, or "" when t is not an article.
func (t Target) Slug() string {
	s, ok := strings.CutPrefix(string(t), articlePrefix)
	if !ok {
		return ""
	}
	return s
}

// Sink receives invalidation notices.
type Sink interface {
	Invalidate(ctx context.Context, targets []Target) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, targets []Target) error

func (f SinkFunc) Invalidate(ctx context.Context, targets []Target) error {
	return f(ctx, targets)
}

// Coordinator fans invalidation notices out to its sinks. Notices are
// fire-and-forget: sink failures are logged and never reach the caller,
// and the cache TTL bounds how long a missed notice can leave a view stale.
type Coordinator struct {
	sinks  []Sink
	logger zerolog.Logger
}

func NewCoordinator(logger zerolog.Logger) *Coordinator {
	return &Coordinator{logger: logger.With().Str("component", "invalidate").Logger()}
}

// Register adds s to the fan-out. It is not safe to call concurrently with
// Invalidate.
func (c *Coordinator) Register(s Sink) {
	c.sinks = append(c.sinks, s)
}

// Invalidate marks targets stale. Duplicates are dropped and order is kept.
func (c *Coordinator) Invalidate(ctx context.Context, targets ...Target) {
	targets = dedupTargets(targets)
	if len(targets) == 0 {
		return
	}
	for _, s := range c.sinks {
		if err := s.Invalidate(ctx, targets); err != nil {
			c.logger.Error().Err(err).Strs("targets", targetStrings(targets)).Msg("invalidation failed")
		}
	}
	c.logger.Debug().Strs("targets", targetStrings(targets)).Msg("invalidated")
}

func dedupTargets(targets []Target) []Target {
	seen := make(map[Target]struct{}, len(targets))
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if t == "" || t == ArticleTarget("") {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func targetStrings(targets []Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = string(t)
	}
	return out
}

// publicTargets are the listing views every published change touches.
var publicTargets = []Target{TargetAdmin, TargetHome, TargetArchive, TargetSitemap, TargetFeed}

func createdTargets() []Target {
	return []Target{TargetAdmin}
}

// updatedTargets covers the article under both slugs so a rename does not
// leave the old URL serving cached content.
func updatedTargets(before, after blog.Post) []Target {
	return append(append([]Target{}, publicTargets...), ArticleTarget(after.Slug), ArticleTarget(before.Slug))
}

func publishTargets(p blog.Post) []Target {
	return append(append([]Target{}, publicTargets...), ArticleTarget(p.Slug))
}

func deletedTargets(p blog.Post) []Target {
	return append(append([]Target{}, publicTargets...), ArticleTarget(p.Slug))
}
