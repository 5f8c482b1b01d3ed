package pressroom

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pressroom/blog"
	"github.com/eringen/pressroom/store"
)

// dashboardMessages are the flash messages the dashboard accepts through
// its msg query parameter.
var dashboardMessages = map[string]string{
	"created":     "Post created.",
	"updated":     "Post updated.",
	"published":   "Post published.",
	"unpublished": "Post moved back to drafts.",
	"deleted":     "Post deleted.",
}

func (a *App) handleLoginPage(c echo.Context) error {
	if ActorID(c) != "" {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	return Render(c, a.Views.AdminLogin("", CsrfToken(c)))
}

func (a *App) handleLogin(c echo.Context) error {
	ctx := c.Request().Context()
	if err := a.limiter.Admit(ctx, loginKey(c.RealIP()), loginAttemptLimit, loginAttemptWindow); err != nil {
		if !errors.Is(err, blog.ErrRateLimited) {
			return err
		}
		setRetryAfter(c, err)
		return RenderStatus(c, http.StatusTooManyRequests,
			a.Views.AdminLogin("Too many login attempts. Try again later.", CsrfToken(c)))
	}

	actorID, err := a.auth.Authenticate(ctx, c.FormValue("username"), c.FormValue("password"))
	if errors.Is(err, ErrInvalidCredentials) {
		a.Logger.Warn().Str("remote_ip", c.RealIP()).Msg("failed login")
		return RenderStatus(c, http.StatusUnauthorized,
			a.Views.AdminLogin("Invalid username or password.", CsrfToken(c)))
	}
	if err != nil {
		return err
	}
	if err := setActorSession(c, actorID); err != nil {
		return err
	}
	a.Logger.Info().Str("actor", actorID).Msg("login")
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleLogout(c echo.Context) error {
	if err := clearActorSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/login/")
}

func (a *App) handleDashboard(c echo.Context) error {
	posts, err := a.Store.List(c.Request().Context(), store.ListOptions{Order: store.OrderCreatedDesc})
	if err != nil {
		return err
	}
	msg := dashboardMessages[c.QueryParam("msg")]
	return Render(c, a.Views.AdminDashboard(posts, msg, CsrfToken(c)))
}

func (a *App) handleNewPost(c echo.Context) error {
	return Render(c, a.Views.AdminEditor(EditorForm{IsNew: true, Values: url.Values{}}, CsrfToken(c)))
}

func (a *App) handleEditPost(c echo.Context) error {
	post, err := a.Store.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminEditor(editorFormFor(post), CsrfToken(c)))
}

func (a *App) handleCreatePost(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	if _, err := a.Authoring.Create(c.Request().Context(), ActorID(c), form); err != nil {
		return a.editorError(c, EditorForm{IsNew: true, Values: form}, err)
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?msg=created")
}

func (a *App) handleUpdatePost(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	id := c.Param("id")
	if _, err := a.Authoring.Update(c.Request().Context(), ActorID(c), id, form); err != nil {
		ef := EditorForm{ID: id, Values: form}
		if existing, ferr := a.Store.FindByID(c.Request().Context(), id); ferr == nil {
			ef.Published = existing.Published
		}
		return a.editorError(c, ef, err)
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?msg=updated")
}

func (a *App) handleTogglePublish(c echo.Context) error {
	p, err := a.Authoring.TogglePublish(c.Request().Context(), ActorID(c), c.Param("id"))
	if err != nil {
		return err
	}
	if p.Published {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=published")
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?msg=unpublished")
}

func (a *App) handleDeletePost(c echo.Context) error {
	if err := a.Authoring.Delete(c.Request().Context(), ActorID(c), c.Param("id")); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?msg=deleted")
}

type uploadResponse struct {
	URL string `json:"url"`
}

func (a *App) handleUpload(c echo.Context) error {
	ctx := c.Request().Context()
	actorID := ActorID(c)
	if err := a.limiter.Admit(ctx, actionKey("upload", actorID), a.Config.RateLimit, a.Config.RateLimitWindow); err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return &blog.UploadError{Reason: "No image file provided.", Err: err}
	}
	src, err := file.Open()
	if err != nil {
		return &blog.UploadError{Reason: "Could not read the upload.", Err: err}
	}
	defer src.Close()

	u, err := a.uploader.Upload(ctx, file.Filename, src, file.Size)
	if err != nil {
		return err
	}
	a.Logger.Info().Str("actor", actorID).Str("url", u).Msg("image uploaded")
	return c.JSON(http.StatusOK, uploadResponse{URL: u})
}

func (a *App) handleEvents(c echo.Context) error {
	return a.Hub.ServeWS(c)
}

// editorError re-renders the editor for errors the author can fix. Other
// errors go to the HTTP error handler.
func (a *App) editorError(c echo.Context, form EditorForm, err error) error {
	form.Error = blog.Message(err)
	switch blog.KindOf(err) {
	case blog.KindValidation:
		var ve *blog.ValidationError
		if errors.As(err, &ve) {
			form.ErrorField = ve.Field
		}
		return RenderStatus(c, http.StatusUnprocessableEntity, a.Views.AdminEditor(form, CsrfToken(c)))
	case blog.KindDuplicateSlug:
		form.ErrorField = "slug"
		return RenderStatus(c, http.StatusUnprocessableEntity, a.Views.AdminEditor(form, CsrfToken(c)))
	case blog.KindRateLimited:
		setRetryAfter(c, err)
		return RenderStatus(c, http.StatusTooManyRequests, a.Views.AdminEditor(form, CsrfToken(c)))
	}
	return err
}

func editorFormFor(p blog.Post) EditorForm {
	return EditorForm{
		ID:        p.ID,
		Published: p.Published,
		Values: url.Values{
			"title":          {p.Title},
			"slug":           {p.Slug},
			"excerpt":        {p.Excerpt},
			"content":        {p.Content},
			"coverImage":     {blog.Deref(p.CoverImage)},
			"postCoverImage": {blog.Deref(p.PostCoverImage)},
		},
	}
}
