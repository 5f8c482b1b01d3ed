// Package blog holds the Post document, its input validation, the
// publication lifecycle and the error taxonomy shared by every layer.
package blog

import "time"

// Post is the single persisted content entity.
type Post struct {
	ID             string
	Title          string
	Slug           string
	Excerpt        string
	Content        string
	CoverImage     *string // list-card thumbnail
	PostCoverImage *string // article hero image
	Published      bool
	PublishedAt    *time.Time
	AuthorID       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Link returns the public path of the post.
func (p Post) Link() string {
	return "/blog/" + p.Slug + "/"
}

// Input is a validated, normalized post payload as accepted by the store.
type Input struct {
	Title          string
	Slug           string
	Excerpt        string
	Content        string
	CoverImage     *string
	PostCoverImage *string
}

// Input returns the content fields of p as an Input, e.g. to pre-fill an
// edit form.
func (p Post) Input() Input {
	return Input{
		Title:          p.Title,
		Slug:           p.Slug,
		Excerpt:        p.Excerpt,
		Content:        p.Content,
		CoverImage:     p.CoverImage,
		PostCoverImage: p.PostCoverImage,
	}
}

// Deref returns the value of an optional string field, or "" when nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
