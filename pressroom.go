// Package pressroom is an editorial blogging platform built with Go, Echo,
// and templ. It serves a public article reader and a session-gated
// authoring console over a SQL post store.
//
// Users provide their own templ templates via the ViewFuncs struct,
// and pressroom handles the handler logic, middleware, rate limiting,
// cache invalidation and content rendering.
package pressroom

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eringen/pressroom/blog"
	"github.com/eringen/pressroom/mdx"
	"github.com/eringen/pressroom/store"
)

const shutdownTimeout = 10 * time.Second

// ViewFuncs holds user-provided templ components that the framework calls
// when rendering pages. This is the inversion-of-control mechanism that
// lets users own and customize all templates.
type ViewFuncs struct {
	Home           func(posts []blog.Post, site SiteConfig) templ.Component
	Archive        func(posts []blog.Post, site SiteConfig) templ.Component
	Article        func(post blog.Post, body templ.Component, site SiteConfig) templ.Component
	AdminLogin     func(message string, csrfToken string) templ.Component
	AdminDashboard func(posts []blog.Post, message string, csrfToken string) templ.Component
	AdminEditor    func(form EditorForm, csrfToken string) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

// EditorForm is the state of the post editor. Values holds the submitted
// or stored field values keyed by form name.
type EditorForm struct {
	ID         string
	Values     url.Values
	Published  bool
	Error      string
	ErrorField string
	IsNew      bool
}

// App is the central pressroom application. It wires together the store,
// cache, authoring pipeline, handlers, middleware, and user-provided
// templates.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Store     store.Store
	Cache     *PostCache
	Views     ViewFuncs
	Authoring *Authoring
	Hub       *Hub
	Renderer  *mdx.Renderer
	Logger    zerolog.Logger

	auth         Authenticator
	uploader     Uploader
	counter      Counter
	limiter      *Limiter
	coordinator  *Coordinator
	customRoutes []func(*App)
	now          func() time.Time
	initialized  bool
}

// New creates a new pressroom App with the given configuration and view
// functions. Call Init or Start to open resources.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config: cfg,
		Echo:   e,
		Views:  views,
		Logger: log.Logger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the store and rate limiter backend, builds the authoring
// pipeline and registers middleware and routes. It is called by Start and
// may be called directly to serve the App through Echo's ServeHTTP.
func (a *App) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}
	if err := a.Config.validate(); err != nil {
		return err
	}

	if a.auth == nil {
		if len(a.Config.Authors) == 0 {
			return fmt.Errorf("pressroom: at least one author is required")
		}
		a.auth = NewPasswordAuthenticator(a.Config.Authors)
	}

	if a.Store == nil {
		s, err := store.Open(ctx, a.Config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("pressroom: init store: %w", err)
		}
		a.Store = s
	}

	if a.counter == nil {
		c, err := a.openCounter()
		if err != nil {
			return fmt.Errorf("pressroom: init rate limiter: %w", err)
		}
		a.counter = c
	}
	a.limiter = NewLimiter(a.counter, a.now)

	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)
	a.Hub = NewHub(a.Logger)
	a.coordinator = NewCoordinator(a.Logger)
	a.coordinator.Register(a.Cache)
	a.coordinator.Register(a.Hub)

	a.Renderer = mdx.NewRenderer(a.Logger)
	a.Authoring = NewAuthoring(a.Store, a.limiter, a.coordinator, a.Config.RateLimit, a.Config.RateLimitWindow, a.Logger)

	if a.uploader == nil {
		a.uploader = NewDiskUploader(a.Config.StaticDir, a.Config.URL, a.Config.MaxUploadBytes)
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.initialized = true
	return nil
}

func (a *App) openCounter() (Counter, error) {
	if a.Config.RateLimitBackend == rateLimitBackendBadger {
		return OpenBadgerCounter(a.Config.RateLimitPath, a.Logger)
	}
	return NewMemoryCounter(a.Config.RateLimitWindow, a.now), nil
}

// Start initializes the App and serves HTTP until ctx is cancelled, then
// shuts the server down gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", a.Config.Addr).Msg("starting server")
		if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info().Msg("shutting down server")
	a.Hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("pressroom: shutdown: %w", err)
	}
	a.Logger.Info().Msg("server stopped")
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.Config.StaticDir)
	e.GET("/robots.txt", a.handleRobots)

	// Public routes
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/blog/", a.handleArchive)
	e.GET("/blog/:slug/", a.handleArticle)

	// Admin routes
	admin := e.Group("/admin", requireActor)
	admin.GET("/login/", a.handleLoginPage)
	admin.POST("/login/", a.handleLogin)
	admin.POST("/logout/", a.handleLogout)
	admin.GET("/", a.handleDashboard)
	admin.GET("/new/", a.handleNewPost)
	admin.POST("/posts/", a.handleCreatePost)
	admin.GET("/posts/:id/", a.handleEditPost)
	admin.POST("/posts/:id/", a.handleUpdatePost)
	admin.POST("/posts/:id/publish/", a.handleTogglePublish)
	admin.POST("/posts/:id/delete/", a.handleDeletePost)
	admin.POST("/uploads/", a.handleUpload, uploadBodyLimit(a.Config.MaxUploadBytes))
	admin.GET("/events/", a.handleEvents)
}

// Close releases the resources opened by Init.
func (a *App) Close() error {
	var errs []error
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.counter != nil {
		errs = append(errs, a.counter.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
