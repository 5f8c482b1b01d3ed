package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pressroom/blog"
)

func setupTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// steppingClock returns a clock that advances one second per call so
// timestamps written by consecutive operations are distinct.
func steppingClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func sampleInput(slug string) blog.Input {
	cover := "https://cdn.example.com/" + slug + ".jpg"
	return blog.Input{
		Title:      "Title " + slug,
		Slug:       slug,
		Excerpt:    "Excerpt for " + slug,
		Content:    "# " + slug + "\n\nBody.",
		CoverImage: &cover,
	}
}

func TestCreateThenFindBySlugIsDraft(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, sampleInput("first-post"), "author-1")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.Published)
	assert.Nil(t, created.PublishedAt)

	got, err := s.FindBySlug(ctx, "first-post", false)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.False(t, got.Published)
	assert.Nil(t, got.PublishedAt)
	assert.Equal(t, "author-1", got.AuthorID)
	require.NotNil(t, got.CoverImage)
	assert.Equal(t, "https://cdn.example.com/first-post.jpg", *got.CoverImage)
	assert.Nil(t, got.PostCoverImage)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)

	_, err = s.FindBySlug(ctx, "first-post", true)
	assert.ErrorIs(t, err, blog.ErrNotFound, "drafts are not publicly reachable")
}

func TestCreateDuplicateSlug(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, sampleInput("taken"), "author-1")
	require.NoError(t, err)

	dup := sampleInput("taken")
	dup.Title = "Another title"
	_, err = s.Create(ctx, dup, "author-2")
	assert.ErrorIs(t, err, blog.ErrDuplicateSlug)

	posts, err := s.List(ctx, ListOptions{Order: OrderCreatedDesc})
	require.NoError(t, err)
	require.Len(t, posts, 1, "failed create performs no write")
	assert.Equal(t, "Title taken", posts[0].Title)
}

func TestUpdate(t *testing.T) {
	s := setupTestStore(t)
	s.now = steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	p, err := s.Create(ctx, sampleInput("original"), "author-1")
	require.NoError(t, err)
	_, err = s.Create(ctx, sampleInput("other"), "author-1")
	require.NoError(t, err)

	in := sampleInput("renamed")
	in.CoverImage = nil
	updated, err := s.Update(ctx, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Slug)
	assert.Nil(t, updated.CoverImage)
	assert.Equal(t, "author-1", updated.AuthorID, "author is immutable")
	assert.True(t, updated.UpdatedAt.After(p.UpdatedAt))

	_, err = s.Update(ctx, p.ID, sampleInput("other"))
	assert.ErrorIs(t, err, blog.ErrDuplicateSlug)

	_, err = s.Update(ctx, "missing-id", sampleInput("whatever"))
	assert.ErrorIs(t, err, blog.ErrNotFound)
}

func TestTogglePublishTwice(t *testing.T) {
	s := setupTestStore(t)
	s.now = steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	p, err := s.Create(ctx, sampleInput("toggled"), "author-1")
	require.NoError(t, err)

	published, err := s.TogglePublish(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, published.Published)
	require.NotNil(t, published.PublishedAt)
	firstPublished := *published.PublishedAt

	public, err := s.FindBySlug(ctx, "toggled", true)
	require.NoError(t, err)
	assert.True(t, public.Published)

	unpublished, err := s.TogglePublish(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, unpublished.Published)
	require.NotNil(t, unpublished.PublishedAt)
	assert.True(t, firstPublished.Equal(*unpublished.PublishedAt))

	stored, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, stored.Published)
	require.NotNil(t, stored.PublishedAt)
	assert.True(t, firstPublished.Equal(*stored.PublishedAt), "publishedAt survives unpublish")

	_, err = s.FindBySlug(ctx, "toggled", true)
	assert.ErrorIs(t, err, blog.ErrNotFound)

	republished, err := s.TogglePublish(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, firstPublished.Equal(*republished.PublishedAt))

	_, err = s.TogglePublish(ctx, "missing-id")
	assert.ErrorIs(t, err, blog.ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p, err := s.Create(ctx, sampleInput("doomed"), "author-1")
	require.NoError(t, err)
	_, err = s.TogglePublish(ctx, p.ID)
	require.NoError(t, err)

	removed, err := s.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "doomed", removed.Slug)

	_, err = s.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, blog.ErrNotFound)
	_, err = s.FindBySlug(ctx, "doomed", false)
	assert.ErrorIs(t, err, blog.ErrNotFound)

	_, err = s.Delete(ctx, p.ID)
	assert.ErrorIs(t, err, blog.ErrNotFound)
}

func TestListOrdering(t *testing.T) {
	s := setupTestStore(t)
	s.now = steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	a, err := s.Create(ctx, sampleInput("a"), "author-1")
	require.NoError(t, err)
	b, err := s.Create(ctx, sampleInput("b"), "author-1")
	require.NoError(t, err)
	c, err := s.Create(ctx, sampleInput("c"), "author-1")
	require.NoError(t, err)

	// Publish c before a, so publication order differs from creation order.
	_, err = s.TogglePublish(ctx, c.ID)
	require.NoError(t, err)
	_, err = s.TogglePublish(ctx, a.ID)
	require.NoError(t, err)

	published, err := s.List(ctx, ListOptions{PublishedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, slugs(published))

	all, err := s.List(ctx, ListOptions{Order: OrderCreatedDesc})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, slugs(all))

	byUpdate, err := s.List(ctx, ListOptions{Order: OrderUpdatedDesc, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, slugs(byUpdate))

	_ = b
}

func TestOperationsJoinEnclosingTransaction(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	errAbort := errors.New("abort")
	err := runInTx(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.Create(ctx, sampleInput("rolled-back"), "author-1"); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	_, err = s.FindBySlug(ctx, "rolled-back", false)
	assert.ErrorIs(t, err, blog.ErrNotFound)
}

func slugs(posts []blog.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Slug
	}
	return out
}
