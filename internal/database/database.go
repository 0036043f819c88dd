package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/beshoynasry/estates/internal/model"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
}

// Ensure DB implements Store interface.
var _ Store = (*DB)(nil)

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Enable WAL mode for better concurrency.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	conn.SetMaxOpenConns(1)
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DatabaseType returns the database backend name.
func (db *DB) DatabaseType() string {
	return "SQLite"
}

// SupportsHighConcurrency returns false for SQLite.
func (db *DB) SupportsHighConcurrency() bool {
	return false
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS diagnostics (
		id TEXT PRIMARY KEY,
		op TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		listing_id TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS diagnostics_created_at ON diagnostics(created_at);
	CREATE TABLE IF NOT EXISTS news_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		feed_url TEXT NOT NULL,
		guid TEXT NOT NULL,
		title TEXT NOT NULL,
		link TEXT,
		published_at DATETIME,
		fetched_at DATETIME NOT NULL,
		UNIQUE(feed_url, guid)
	);
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	INSERT OR IGNORE INTO settings (key, value) VALUES ('refresh_interval_minutes', '15');
	`
	_, err := db.conn.Exec(schema)
	return err
}

// --- Diagnostic Methods ---

// RecordDiagnostic stores a diagnostic.
func (db *DB) RecordDiagnostic(d *model.Diagnostic) error {
	_, err := db.conn.Exec(
		"INSERT INTO diagnostics (id, op, category, listing_id, message, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		d.ID, d.Op, d.Category, d.ListingID, d.Message, d.CreatedAt.UTC(),
	)
	return err
}

// GetDiagnostics returns the newest diagnostics first.
func (db *DB) GetDiagnostics(limit int) ([]model.Diagnostic, error) {
	rows, err := db.conn.Query(
		"SELECT id, op, category, listing_id, message, created_at FROM diagnostics ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDiagnostics(rows)
}

func scanDiagnostics(rows *sql.Rows) ([]model.Diagnostic, error) {
	var out []model.Diagnostic
	for rows.Next() {
		var d model.Diagnostic
		if err := rows.Scan(&d.ID, &d.Op, &d.Category, &d.ListingID, &d.Message, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CleanupDiagnostics removes diagnostics created before the given time.
func (db *DB) CleanupDiagnostics(before time.Time) (int64, error) {
	res, err := db.conn.Exec("DELETE FROM diagnostics WHERE created_at < ?", before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- News Methods ---

// AddNewsItem inserts an item if its (feed_url, guid) is new.
// Returns the ID and whether it was newly inserted.
func (db *DB) AddNewsItem(item *model.NewsItem) (int64, bool, error) {
	res, err := db.conn.Exec(`INSERT OR IGNORE INTO news_items (feed_url, guid, title, link, published_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)`, item.FeedURL, item.GUID, item.Title, item.Link, item.PublishedAt.UTC(), item.FetchedAt.UTC())
	if err != nil {
		return 0, false, err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return 0, false, nil
	}
	id, err := res.LastInsertId()
	return id, true, err
}

// GetNewsItems returns the most recently published items.
func (db *DB) GetNewsItems(limit int) ([]model.NewsItem, error) {
	rows, err := db.conn.Query(`SELECT id, feed_url, guid, title, COALESCE(link, ''), published_at, fetched_at
		FROM news_items ORDER BY published_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNewsItems(rows)
}

func scanNewsItems(rows *sql.Rows) ([]model.NewsItem, error) {
	var items []model.NewsItem
	for rows.Next() {
		var it model.NewsItem
		if err := rows.Scan(&it.ID, &it.FeedURL, &it.GUID, &it.Title, &it.Link, &it.PublishedAt, &it.FetchedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// --- Settings Methods ---

// GetSetting returns a setting value, or "" when unset.
func (db *DB) GetSetting(key string) (string, error) {
	var val string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// SetSetting upserts a setting.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec("INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value", key, value)
	return err
}

// GetRefreshInterval returns the refresh interval in minutes.
func (db *DB) GetRefreshInterval() (int, error) {
	return refreshInterval(db)
}

func refreshInterval(s interface{ GetSetting(string) (string, error) }) (int, error) {
	val, err := s.GetSetting(model.SettingRefreshInterval)
	if err != nil {
		return DefaultRefreshIntervalMinutes, err
	}
	if val == "" {
		return DefaultRefreshIntervalMinutes, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return DefaultRefreshIntervalMinutes, fmt.Errorf("parse %s: %w", model.SettingRefreshInterval, err)
	}
	return n, nil
}
