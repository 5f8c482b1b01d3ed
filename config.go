package pressroom

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/eringen/pressroom/store"
)

// SiteConfig holds all configuration for a pressroom site.
type SiteConfig struct {
	Name        string // Site name (default "Pressroom")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS
	Author      string

	Addr        string // Listen address (default ":3000")
	DatabaseURL string // postgres:// URL or SQLite path (default "data/pressroom.db")

	SessionSecret string            // Required: session encryption secret
	CookieSecure  bool              // Set true for HTTPS
	Authors       map[string]string // author id -> bcrypt hash

	RateLimit        int           // Mutations per window per action and author (default 30)
	RateLimitWindow  time.Duration // default 1m
	RateLimitBackend string        // "memory" (default) or "badger"
	RateLimitPath    string        // Badger directory; empty runs badger in memory

	PostCacheTTL   time.Duration // Public read cache TTL (default 60s)
	StaticDir      string        // default "public"
	MaxUploadBytes int64         // default 4MB

	LogLevel  string // zerolog level (default "info")
	LogFormat string // "console" or "json" (default "json")
}

const (
	defaultRateLimit       = 30
	defaultUploadBytes     = 4 << 20
	loginAttemptLimit      = 5
	loginAttemptWindow     = time.Minute
	rateLimitBackendBadger = "badger"
)

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Pressroom"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "data/pressroom.db"
	}
	if c.RateLimit <= 0 {
		c.RateLimit = defaultRateLimit
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = time.Minute
	}
	if c.RateLimitBackend == "" {
		c.RateLimitBackend = "memory"
	}
	if c.PostCacheTTL <= 0 {
		c.PostCacheTTL = 60 * time.Second
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = defaultUploadBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
}

// LoadConfig reads configuration from environment variables. Unset
// variables fall back to the defaults applied by New.
func LoadConfig() (SiteConfig, error) {
	cfg := SiteConfig{
		Name:             os.Getenv("SITE_NAME"),
		URL:              os.Getenv("SITE_URL"),
		Description:      os.Getenv("SITE_DESCRIPTION"),
		Author:           os.Getenv("SITE_AUTHOR"),
		Addr:             os.Getenv("ADDR"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SessionSecret:    os.Getenv("SESSION_SECRET"),
		RateLimitBackend: os.Getenv("RATE_LIMIT_BACKEND"),
		RateLimitPath:    os.Getenv("RATE_LIMIT_PATH"),
		StaticDir:        os.Getenv("STATIC_DIR"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        os.Getenv("LOG_FORMAT"),
	}

	var err error
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		if cfg.CookieSecure, err = strconv.ParseBool(v); err != nil {
			return cfg, fmt.Errorf("invalid COOKIE_SECURE: %w", err)
		}
	}
	if v := os.Getenv("PRESSROOM_AUTHORS"); v != "" {
		if cfg.Authors, err = ParseAuthors(v); err != nil {
			return cfg, fmt.Errorf("invalid PRESSROOM_AUTHORS: %w", err)
		}
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if cfg.RateLimit, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("invalid RATE_LIMIT: %w", err)
		}
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		if cfg.RateLimitWindow, err = time.ParseDuration(v); err != nil {
			return cfg, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
		}
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if cfg.PostCacheTTL, err = time.ParseDuration(v); err != nil {
			return cfg, fmt.Errorf("invalid CACHE_TTL: %w", err)
		}
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if cfg.MaxUploadBytes, err = strconv.ParseInt(v, 10, 64); err != nil {
			return cfg, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
		}
	}
	switch cfg.RateLimitBackend {
	case "", "memory", rateLimitBackendBadger:
	default:
		return cfg, fmt.Errorf("invalid RATE_LIMIT_BACKEND %q: want memory or badger", cfg.RateLimitBackend)
	}
	return cfg, nil
}

// validate checks the settings Init cannot run without.
func (c SiteConfig) validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("pressroom: SessionSecret is required")
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for static assets and uploads.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.Config.StaticDir = dir
	}
}

// WithStore uses s instead of opening Config.DatabaseURL.
func WithStore(s store.Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithCounter uses c as the rate limiter state instead of the configured
// backend.
func WithCounter(c Counter) Option {
	return func(a *App) {
		a.counter = c
	}
}

// WithAuthenticator replaces the password authenticator built from
// Config.Authors.
func WithAuthenticator(auth Authenticator) Option {
	return func(a *App) {
		a.auth = auth
	}
}

// WithUploader replaces the disk uploader.
func WithUploader(u Uploader) Option {
	return func(a *App) {
		a.uploader = u
	}
}

// WithLogger sets the logger used by the App and its collaborators.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithClock overrides the clock used by the rate limiter.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}
