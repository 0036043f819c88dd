package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"LISTINGS_API_URL", "ASSET_BASE_URL", "CACHE_TTL", "NEWS_FEED_URLS", "REDIS_URL", "DATABASE_URL"} {
		t.Setenv(k, "")
	}
	t.Setenv("LISTINGS_API_URL", DefaultListingsAPIURL+"/")
	t.Setenv("ASSET_BASE_URL", DefaultAssetBaseURL)
	t.Setenv("CACHE_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultListingsAPIURL, cfg.ListingsAPIURL)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Empty(t, cfg.NewsFeedURLs)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadFeedsAndValidation(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LISTINGS_API_URL", "http://api.local")
	t.Setenv("ASSET_BASE_URL", "http://assets.local")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("NEWS_FEED_URLS", " https://news.example/rss , ,https://other.example/atom")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://news.example/rss", "https://other.example/atom"}, cfg.NewsFeedURLs)

	t.Setenv("CACHE_TTL", "soon")
	_, err = Load()
	assert.ErrorContains(t, err, "CACHE_TTL")

	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("LISTINGS_API_URL", "not a url")
	_, err = Load()
	assert.ErrorContains(t, err, "LISTINGS_API_URL")
}

func TestIsDevelopment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "Production")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Production", cfg.Env)
	assert.False(t, cfg.IsDevelopment())

	assert.True(t, (&Config{Env: "DEVELOPMENT"}).IsDevelopment())
}
