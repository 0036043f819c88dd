// Package database provides storage backends for the site's own state:
// diagnostics, market-news headlines and settings. Listings are never stored.
package database

import (
	"time"

	"github.com/beshoynasry/estates/internal/model"
)

// Store defines the interface for database operations.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend ("SQLite" or "PostgreSQL").
	DatabaseType() string

	// SupportsHighConcurrency returns true if the database can handle
	// many concurrent write operations (e.g., PostgreSQL).
	// SQLite returns false due to write locking limitations.
	SupportsHighConcurrency() bool

	// Diagnostic operations
	RecordDiagnostic(d *model.Diagnostic) error
	GetDiagnostics(limit int) ([]model.Diagnostic, error)
	CleanupDiagnostics(before time.Time) (int64, error)

	// News operations
	AddNewsItem(item *model.NewsItem) (int64, bool, error)
	GetNewsItems(limit int) ([]model.NewsItem, error)

	// Settings operations
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	GetRefreshInterval() (int, error)
}

// DefaultRefreshIntervalMinutes seeds the refresh interval setting.
const DefaultRefreshIntervalMinutes = 15
