package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/eringen/pressroom/blog"
)

var _ Store = (*SQLite)(nil)

// SQLite is the default Store backend.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (or creates) the database at path, ensures the data
// directory exists and runs schema migrations.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	// Pragmas go in the DSN so every pooled connection gets them: WAL for
	// concurrent readers, a busy timeout so writers wait instead of failing
	// with SQLITE_BUSY, and immediate transactions so read-then-write
	// transactions take the write lock up front.
	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=cache_size(-8000)" +
		"&_txlock=immediate" +
		"&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

const postColumns = `id, title, slug, excerpt, content, cover_image, post_cover_image,
	published, published_at, author_id, created_at, updated_at`

const insertPostQuery = `
	INSERT INTO posts (` + postColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Create inserts a new draft.
func (s *SQLite) Create(ctx context.Context, in blog.Input, authorID string) (blog.Post, error) {
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
	_, err := executorFor(ctx, s.db).ExecContext(ctx, insertPostQuery,
		p.ID, p.Title, p.Slug, p.Excerpt, p.Content, p.CoverImage, p.PostCoverImage,
		0, nil, p.AuthorID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return blog.Post{}, sqliteError("create post", err)
	}
	return p, nil
}

const updatePostQuery = `
	UPDATE posts
	SET title = ?, slug = ?, excerpt = ?, content = ?, cover_image = ?, post_cover_image = ?, updated_at = ?
	WHERE id = ?
`

// Update replaces the content fields of post id.
func (s *SQLite) Update(ctx context.Context, id string, in blog.Input) (blog.Post, error) {
	var p blog.Post
	err := runInTx(ctx, s.db, func(ctx context.Context) error {
		res, err := executorFor(ctx, s.db).ExecContext(ctx, updatePostQuery,
			in.Title, in.Slug, in.Excerpt, in.Content, in.CoverImage, in.PostCoverImage, s.now().UTC(), id,
		)
		if err != nil {
			return sqliteError("update post", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("update post: %w", err)
		} else if n == 0 {
			return fmt.Errorf("update post %s: %w", id, blog.ErrNotFound)
		}
		p, err = s.FindByID(ctx, id)
		return err
	})
	return p, err
}

const setPublicationQuery = `
	UPDATE posts SET published = ?, published_at = ?, updated_at = ? WHERE id = ?
`

// TogglePublish flips the published flag of post id.
func (s *SQLite) TogglePublish(ctx context.Context, id string) (blog.Post, error) {
	var p blog.Post
	err := runInTx(ctx, s.db, func(ctx context.Context) error {
		cur, err := s.FindByID(ctx, id)
		if err != nil {
			return err
		}
		p = blog.TogglePublish(cur, s.now())
		_, err = executorFor(ctx, s.db).ExecContext(ctx, setPublicationQuery,
			boolInt(p.Published), p.PublishedAt, p.UpdatedAt, id,
		)
		if err != nil {
			return fmt.Errorf("toggle publish: %w", err)
		}
		return nil
	})
	return p, err
}

// Delete removes post id.
func (s *SQLite) Delete(ctx context.Context, id string) (blog.Post, error) {
	var p blog.Post
	err := runInTx(ctx, s.db, func(ctx context.Context) error {
		var err error
		if p, err = s.FindByID(ctx, id); err != nil {
			return err
		}
		if _, err := executorFor(ctx, s.db).ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		return nil
	})
	return p, err
}

// FindByID returns a post regardless of its published state.
func (s *SQLite) FindByID(ctx context.Context, id string) (blog.Post, error) {
	row := executorFor(ctx, s.db).QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	p, err := scanSQLitePost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return blog.Post{}, fmt.Errorf("post %s: %w", id, blog.ErrNotFound)
	}
	return p, err
}

// FindBySlug returns the post with slug; drafts are invisible when
// publishedOnly is set.
func (s *SQLite) FindBySlug(ctx context.Context, slug string, publishedOnly bool) (blog.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE slug = ?`
	if publishedOnly {
		query += ` AND published = 1`
	}
	p, err := scanSQLitePost(executorFor(ctx, s.db).QueryRowContext(ctx, query, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return blog.Post{}, fmt.Errorf("post %q: %w", slug, blog.ErrNotFound)
	}
	return p, err
}

// List returns posts filtered and ordered by opts.
func (s *SQLite) List(ctx context.Context, opts ListOptions) ([]blog.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts`
	if opts.PublishedOnly {
		query += ` WHERE published = 1`
	}
	query += " " + orderClause(opts.Order)
	if opts.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(opts.Limit)
	}

	rows, err := executorFor(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]blog.Post, 0)
	for rows.Next() {
		p, err := scanSQLitePost(rows)
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

// sqliteRow is the scan target for a posts row; nullable columns use the
// sql.Null types and are converted in toPost.
type sqliteRow struct {
	ID             string
	Title          string
	Slug           string
	Excerpt        string
	Content        string
	CoverImage     sql.NullString
	PostCoverImage sql.NullString
	Published      int
	PublishedAt    sql.NullTime
	AuthorID       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLitePost(sc scanner) (blog.Post, error) {
	var r sqliteRow
	err := sc.Scan(
		&r.ID, &r.Title, &r.Slug, &r.Excerpt, &r.Content, &r.CoverImage, &r.PostCoverImage,
		&r.Published, &r.PublishedAt, &r.AuthorID, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return blog.Post{}, err
		}
		return blog.Post{}, fmt.Errorf("scan post: %w", err)
	}
	return r.toPost(), nil
}

func (r sqliteRow) toPost() blog.Post {
	p := blog.Post{
		ID:        r.ID,
		Title:     r.Title,
		Slug:      r.Slug,
		Excerpt:   r.Excerpt,
		Content:   r.Content,
		Published: r.Published == 1,
		AuthorID:  r.AuthorID,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.CoverImage.Valid {
		p.CoverImage = &r.CoverImage.String
	}
	if r.PostCoverImage.Valid {
		p.PostCoverImage = &r.PostCoverImage.String
	}
	if r.PublishedAt.Valid {
		t := r.PublishedAt.Time.UTC()
		p.PublishedAt = &t
	}
	return p
}

// sqliteError translates driver errors into the blog taxonomy.
func sqliteError(op string, err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return fmt.Errorf("%s: %w", op, blog.ErrDuplicateSlug)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
