package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eringen/pressroom/blog"
)

var _ Store = (*Postgres)(nil)

const uniqueViolation = "23505"

// Postgres is a Store backed by PostgreSQL through a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT NOT NULL,
		excerpt TEXT NOT NULL,
		content TEXT NOT NULL,
		cover_image TEXT,
		post_cover_image TEXT,
		published BOOLEAN NOT NULL DEFAULT FALSE,
		published_at TIMESTAMPTZ,
		author_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug);
	CREATE INDEX IF NOT EXISTS idx_posts_published_at ON posts(published, published_at DESC);
	CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
`

// NewPostgres connects to databaseURL, verifies the connection and ensures
// the schema exists. The caller should call Close when done.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{pool: pool, now: time.Now}, nil
}

// Close releases every pooled connection.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// Create inserts a new draft.
func (s *Postgres) Create(ctx context.Context, in blog.Input, authorID string) (blog.Post, error) {
	now := s.now().UTC()
	p := blog.Post{
		ID:             uuid.NewString(),
		Title:          in.Title,
		Slug:           in.Slug,
		Excerpt:        in.Excerpt,
		Content:        in.Content,
		CoverImage:     in.CoverImage,
		PostCoverImage: in.PostCoverImage,
		AuthorID:       authorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, NULL, $8, $9, $10)`,
		p.ID, p.Title, p.Slug, p.Excerpt, p.Content, p.CoverImage, p.PostCoverImage,
		p.AuthorID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return blog.Post{}, postgresError("create post", err)
	}
	return p, nil
}

// Update replaces the content fields of post id.
func (s *Postgres) Update(ctx context.Context, id string, in blog.Input) (blog.Post, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE posts
		SET title = $1, slug = $2, excerpt = $3, content = $4, cover_image = $5, post_cover_image = $6, updated_at = $7
		WHERE id = $8
		RETURNING `+postColumns,
		in.Title, in.Slug, in.Excerpt, in.Content, in.CoverImage, in.PostCoverImage, s.now().UTC(), id,
	)
	p, err := scanPostgresPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return blog.Post{}, fmt.Errorf("update post %s: %w", id, blog.ErrNotFound)
	}
	if err != nil {
		return blog.Post{}, postgresError("update post", err)
	}
	return p, nil
}

// TogglePublish flips the published flag of post id. The row is locked for
// the duration of the read-modify-write.
func (s *Postgres) TogglePublish(ctx context.Context, id string) (blog.Post, error) {
	var p blog.Post
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		cur, err := scanPostgresPost(tx.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("post %s: %w", id, blog.ErrNotFound)
		}
		if err != nil {
			return err
		}
		p = blog.TogglePublish(cur, s.now())
		_, err = tx.Exec(ctx, `UPDATE posts SET published = $1, published_at = $2, updated_at = $3 WHERE id = $4`,
			p.Published, p.PublishedAt, p.UpdatedAt, id,
		)
		if err != nil {
			return fmt.Errorf("toggle publish: %w", err)
		}
		return nil
	})
	return p, err
}

// Delete removes post id.
func (s *Postgres) Delete(ctx context.Context, id string) (blog.Post, error) {
	p, err := scanPostgresPost(s.pool.QueryRow(ctx, `DELETE FROM posts WHERE id = $1 RETURNING `+postColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return blog.Post{}, fmt.Errorf("delete post %s: %w", id, blog.ErrNotFound)
	}
	if err != nil {
		return blog.Post{}, fmt.Errorf("delete post: %w", err)
	}
	return p, nil
}

// FindByID returns a post regardless of its published state.
func (s *Postgres) FindByID(ctx context.Context, id string) (blog.Post, error) {
	p, err := scanPostgresPost(s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return blog.Post{}, fmt.Errorf("post %s: %w", id, blog.ErrNotFound)
	}
	return p, err
}

// FindBySlug returns the post with slug; drafts are invisible when
// publishedOnly is set.
func (s *Postgres) FindBySlug(ctx context.Context, slug string, publishedOnly bool) (blog.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE slug = $1`
	if publishedOnly {
		query += ` AND published`
	}
	p, err := scanPostgresPost(s.pool.QueryRow(ctx, query, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return blog.Post{}, fmt.Errorf("post %q: %w", slug, blog.ErrNotFound)
	}
	return p, err
}

// List returns posts filtered and ordered by opts.
func (s *Postgres) List(ctx context.Context, opts ListOptions) ([]blog.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts`
	if opts.PublishedOnly {
		query += ` WHERE published`
	}
	query += " " + orderClause(opts.Order)
	if opts.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(opts.Limit)
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]blog.Post, 0)
	for rows.Next() {
		p, err := scanPostgresPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func scanPostgresPost(row pgx.Row) (blog.Post, error) {
	var p blog.Post
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.CoverImage, &p.PostCoverImage,
		&p.Published, &p.PublishedAt, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return blog.Post{}, err
		}
		return blog.Post{}, fmt.Errorf("scan post: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if p.PublishedAt != nil {
		t := p.PublishedAt.UTC()
		p.PublishedAt = &t
	}
	return p, nil
}

func postgresError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, blog.ErrDuplicateSlug)
	}
	return fmt.Errorf("%s: %w", op, err)
}
