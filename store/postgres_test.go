package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pressroom/blog"
)

// setupPostgres connects to PRESSROOM_TEST_POSTGRES_URL and skips the test
// when it is not set.
func setupPostgres(t *testing.T) *Postgres {
	t.Helper()
	url := os.Getenv("PRESSROOM_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("PRESSROOM_TEST_POSTGRES_URL not set")
	}
	s, err := NewPostgres(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.pool.Exec(context.Background(), `DELETE FROM posts WHERE author_id LIKE 'pgtest-%'`)
		s.Close()
	})
	return s
}

func TestPostgresLifecycle(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()
	author := "pgtest-" + uuid.NewString()
	slug := "pg-" + uuid.NewString()

	p, err := s.Create(ctx, sampleInput(slug), author)
	require.NoError(t, err)

	_, err = s.Create(ctx, sampleInput(slug), author)
	assert.ErrorIs(t, err, blog.ErrDuplicateSlug)

	_, err = s.FindBySlug(ctx, slug, true)
	assert.ErrorIs(t, err, blog.ErrNotFound)

	published, err := s.TogglePublish(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)

	unpublished, err := s.TogglePublish(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, unpublished.Published)
	require.NotNil(t, unpublished.PublishedAt)
	assert.True(t, published.PublishedAt.Equal(*unpublished.PublishedAt))

	_, err = s.Update(ctx, uuid.NewString(), sampleInput("pg-missing"))
	assert.ErrorIs(t, err, blog.ErrNotFound)

	_, err = s.Delete(ctx, p.ID)
	require.NoError(t, err)
	_, err = s.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, blog.ErrNotFound)
}
