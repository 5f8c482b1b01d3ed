package views

import (
	"bytes"
	"context"
	"html"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/pressroom/blog"
	"github.com/eringen/pressroom/mdx"
)

// component wraps a buffer-writing function as a templ component. Nothing
// is written to w unless fn succeeds.
func component(fn func(ctx context.Context, buf *bytes.Buffer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := fn(ctx, &buf); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func esc(s string) string {
	return html.EscapeString(s)
}

// formatDate renders t as "January 2, 2006", or "" for nil.
func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("January 2, 2006")
}

func isoDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// imageURL returns the escaped URL of an optional image, or "" when it is
// missing or unsafe.
func imageURL(s *string) string {
	return mdx.SafeURL(blog.Deref(s))
}
