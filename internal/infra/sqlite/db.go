// Package sqlite provides SQLite-based persistent storage for Gatekeep.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/gatekeep-net/gatekeep/internal/domain"
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Host settings (last known model/app version, install id, …)
		`CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// User-defined rule filters evaluated before the model
		`CREATE TABLE IF NOT EXISTS rules (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			kind       TEXT NOT NULL,
			pattern    TEXT NOT NULL,
			category   TEXT NOT NULL,
			enabled    BOOLEAN DEFAULT 1,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_enabled ON rules(enabled)`,

		// Model load history (non-sentinel loads only)
		`CREATE TABLE IF NOT EXISTS loads (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			version     INTEGER NOT NULL,
			app_version TEXT NOT NULL,
			loaded_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_loads_at ON loads(loaded_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Settings ───────────────────────────────────────────────────────────────

// SetSetting stores a key-value pair.
func (d *DB) SetSetting(key, value string) error {
	_, err := d.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	return err
}

// GetSetting retrieves a value, "" when unset.
func (d *DB) GetSetting(key string) (string, error) {
	var value string
	err := d.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// ─── Rules ──────────────────────────────────────────────────────────────────

// Rule is one stored filter rule.
type Rule struct {
	ID        int64
	Kind      string // "substring" or "regex"
	Pattern   string
	Category  domain.Category
	Enabled   bool
	CreatedAt time.Time
}

// AddRule stores a rule and returns its id.
func (d *DB) AddRule(kind, pattern string, category domain.Category) (int64, error) {
	res, err := d.db.Exec(
		`INSERT INTO rules (kind, pattern, category, enabled, created_at) VALUES (?, ?, ?, 1, ?)`,
		kind, pattern, string(category), time.Now().Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListRules returns all enabled rules, oldest first.
func (d *DB) ListRules() ([]Rule, error) {
	rows, err := d.db.Query(
		`SELECT id, kind, pattern, category, enabled, created_at
		 FROM rules WHERE enabled = 1 ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var r Rule
		var category string
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.Kind, &r.Pattern, &category, &r.Enabled, &createdAt); err != nil {
			return nil, err
		}
		r.Category = domain.Category(category)
		r.CreatedAt = time.Unix(createdAt, 0)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// DeleteRule removes a rule by id.
func (d *DB) DeleteRule(id int64) error {
	res, err := d.db.Exec(`DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

// ─── Load History ───────────────────────────────────────────────────────────

// LoadRecord is one row of model load history.
type LoadRecord struct {
	ID         int64
	Version    uint32
	AppVersion string
	LoadedAt   time.Time
}

// RecordLoad appends a load-history row.
func (d *DB) RecordLoad(version uint32, appVersion string) error {
	_, err := d.db.Exec(
		`INSERT INTO loads (version, app_version, loaded_at) VALUES (?, ?, ?)`,
		version, appVersion, time.Now().Unix(),
	)
	return err
}

// RecentLoads returns the most recent load records, newest first.
func (d *DB) RecentLoads(limit int) ([]LoadRecord, error) {
	rows, err := d.db.Query(
		`SELECT id, version, app_version, loaded_at
		 FROM loads ORDER BY loaded_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []LoadRecord
	for rows.Next() {
		var r LoadRecord
		var loadedAt int64
		if err := rows.Scan(&r.ID, &r.Version, &r.AppVersion, &loadedAt); err != nil {
			return nil, err
		}
		r.LoadedAt = time.Unix(loadedAt, 0)
		records = append(records, r)
	}
	return records, rows.Err()
}
