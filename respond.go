package pressroom

import (
	"bytes"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus renders cmp into a buffer and writes it with code. Nothing
// is written when rendering fails, so the error handler still owns the
// response.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	var buf bytes.Buffer
	if err := cmp.Render(c.Request().Context(), &buf); err != nil {
		return err
	}
	return c.HTMLBlob(code, buf.Bytes())
}

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// ArticleURL is the canonical URL of the article with slug.
func ArticleURL(base, slug string) string {
	return BuildURL(base, "blog", slug)
}

// AdminPostPath is the editor path of post id. Action paths hang off it.
func AdminPostPath(id string, action ...string) string {
	p := "/admin/posts/" + url.PathEscape(id) + "/"
	for _, a := range action {
		p += a + "/"
	}
	return p
}
