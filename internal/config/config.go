// Package config provides application configuration loading.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the hosted listings API.
const (
	DefaultListingsAPIURL = "https://sleepy-blinnie-beshoynasry-2859766e.koyeb.app/api"
	DefaultAssetBaseURL   = "https://sleepy-blinnie-beshoynasry-2859766e.koyeb.app"
	DefaultImage          = "/static/img/placeholder.svg"
)

// Config holds all application configuration values.
type Config struct {
	Env      string
	HTTPAddr string
	LogLevel string

	ListingsAPIURL    string
	AssetBaseURL      string
	DefaultImage      string
	HTTPClientTimeout time.Duration

	DatabaseURL string
	SQLitePath  string

	RedisURL string
	CacheTTL time.Duration

	NewsFeedURLs       []string
	SessionIdleTimeout time.Duration
}

// Load reads configuration from environment variables, after loading a
// .env file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ListingsAPIURL: strings.TrimRight(getEnv("LISTINGS_API_URL", DefaultListingsAPIURL), "/"),
		AssetBaseURL:   strings.TrimRight(getEnv("ASSET_BASE_URL", DefaultAssetBaseURL), "/"),
		DefaultImage:   getEnv("DEFAULT_IMAGE", DefaultImage),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SQLitePath:     getEnv("SQLITE_PATH", "estates.db"),
		RedisURL:       getEnv("REDIS_URL", ""),
		NewsFeedURLs:   splitCSV(getEnv("NEWS_FEED_URLS", "")),
	}

	var err error
	if cfg.HTTPClientTimeout, err = parseDuration("HTTP_CLIENT_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = parseDuration("CACHE_TTL", "5m"); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTimeout, err = parseDuration("SESSION_IDLE_TIMEOUT", "30m"); err != nil {
		return nil, err
	}

	if err := requireHTTPURL("LISTINGS_API_URL", cfg.ListingsAPIURL); err != nil {
		return nil, err
	}
	if err := requireHTTPURL("ASSET_BASE_URL", cfg.AssetBaseURL); err != nil {
		return nil, err
	}
	for _, u := range cfg.NewsFeedURLs {
		if err := requireHTTPURL("NEWS_FEED_URLS", u); err != nil {
			return nil, err
		}
	}
	if cfg.DatabaseURL == "" && cfg.SQLitePath == "" {
		return nil, fmt.Errorf("either DATABASE_URL or SQLITE_PATH is required")
	}

	return cfg, nil
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}
	return d, nil
}

func requireHTTPURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s: %q is not an absolute http(s) URL", key, raw)
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
