package pressroom

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pressroom/blog"
)

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Cache.ListPublished(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(posts, a.Config))
}

func (a *App) handleArchive(c echo.Context) error {
	posts, err := a.Cache.ListPublished(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.Archive(posts, a.Config))
}

func (a *App) handleArticle(c echo.Context) error {
	post, err := a.Cache.Article(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	return Render(c, a.Views.Article(post, a.Renderer.RenderSource(post.Content), a.Config))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPublished(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPublished(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Allow: /blog\n")
	b.WriteString("Disallow: /admin\n")
	b.WriteString("Disallow: /api\n")
	b.WriteString("\nSitemap: " + a.Config.URL + "/sitemap.xml\n")
	return c.String(http.StatusOK, b.String())
}

// retryAfter renders d as whole seconds for the Retry-After header.
func retryAfter(d time.Duration) string {
	return strconv.Itoa(max(int(math.Ceil(d.Seconds())), 1))
}

func setRetryAfter(c echo.Context, err error) {
	var rl *blog.RateLimitError
	if errors.As(err, &rl) {
		c.Response().Header().Set("Retry-After", retryAfter(rl.RetryAfter))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	switch blog.KindOf(err) {
	case blog.KindUnauthorized:
		if wantsJSON(c) {
			_ = c.JSON(http.StatusUnauthorized, errorResponse{Error: blog.Message(err)})
			return
		}
		_ = c.Redirect(http.StatusSeeOther, "/admin/login/")
		return
	case blog.KindRateLimited:
		setRetryAfter(c, err)
		if wantsJSON(c) {
			_ = c.JSON(http.StatusTooManyRequests, errorResponse{Error: blog.Message(err)})
			return
		}
		_ = c.String(http.StatusTooManyRequests, blog.Message(err))
		return
	case blog.KindNotFound:
		a.renderNotFound(c)
		return
	case blog.KindValidation, blog.KindDuplicateSlug:
		_ = c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: blog.Message(err)})
		return
	case blog.KindUpload:
		var ue *blog.UploadError
		msg := blog.Message(err)
		if errors.As(err, &ue) && ue.Reason != "" {
			msg = ue.Reason
		}
		_ = c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		a.renderNotFound(c)
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Logger.Error().Err(err).
			Str("method", c.Request().Method).
			Str("uri", c.Request().RequestURI).
			Msg("server error")
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

func (a *App) renderNotFound(c echo.Context) {
	if wantsJSON(c) {
		_ = c.JSON(http.StatusNotFound, errorResponse{Error: "Not found"})
		return
	}
	_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
}
