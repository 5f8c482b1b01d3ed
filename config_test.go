package pressroom

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	var cfg SiteConfig
	cfg.setDefaults()

	assert.Equal(t, "Pressroom", cfg.Name)
	assert.Equal(t, "http://localhost:3000", cfg.URL)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, 30, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 60*time.Second, cfg.PostCacheTTL)
	assert.Equal(t, int64(4<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "memory", cfg.RateLimitBackend)

	cfg = SiteConfig{URL: "https://example.com/"}
	cfg.setDefaults()
	assert.Equal(t, "https://example.com", cfg.URL)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SITE_NAME", "The Daily")
	t.Setenv("SITE_URL", "https://daily.example.com")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("PRESSROOM_AUTHORS", "alice:$2a$10$abc")
	t.Setenv("RATE_LIMIT", "10")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("RATE_LIMIT_BACKEND", "badger")
	t.Setenv("CACHE_TTL", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "The Daily", cfg.Name)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, map[string]string{"alice": "$2a$10$abc"}, cfg.Authors)
	assert.Equal(t, 10, cfg.RateLimit)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, "badger", cfg.RateLimitBackend)
	assert.Equal(t, 5*time.Second, cfg.PostCacheTTL)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"RATE_LIMIT", "many"},
		{"RATE_LIMIT_WINDOW", "soon"},
		{"COOKIE_SECURE", "maybe"},
		{"RATE_LIMIT_BACKEND", "redis"},
		{"PRESSROOM_AUTHORS", "alice"},
		{"MAX_UPLOAD_BYTES", "4MB"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestNewLogger(t *testing.T) {
	_, err := NewLogger("debug", "console", nil)
	assert.NoError(t, err)
	_, err = NewLogger("loud", "json", nil)
	assert.Error(t, err)
}
