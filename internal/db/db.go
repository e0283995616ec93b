package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DefaultPath is the default database location
const DefaultPath = "/var/lib/assetpulse/assets.db"

// Write retry policy for a locked database
const (
	maxRetries     = 5
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
	path string
}

// New opens or creates the SQLite database at the given path
func New(path string) (*DB, error) {
	if path == "" {
		path = DefaultPath
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, path: path}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Path returns the database file path
func (d *DB) Path() string {
	return d.path
}

// migrate runs the database schema migrations
func (d *DB) migrate() error {
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	var version int
	err = d.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return err
	}

	migrations := []string{
		migrationV1,
		migrationV2,
		migrationV3,
	}

	for i, migration := range migrations {
		v := i + 1
		if v <= version {
			continue
		}

		tx, err := d.conn.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(migration); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d failed: %w", v, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// migrationV1 creates the snapshot tables
const migrationV1 = `
-- One row per surviving device per run date
CREATE TABLE IF NOT EXISTS asset_history (
    run_date TEXT NOT NULL,
    hostname TEXT NOT NULL,
    os TEXT,
    deviceType TEXT,
    complianceStatus TEXT,
    lastSeen TEXT,
    percentPassing REAL,
    endOfLife INTEGER,
    crowdstrikeStatus TEXT,
    taniumStatus TEXT,
    jamfStatus TEXT,
    PRIMARY KEY (run_date, hostname)
);

CREATE INDEX IF NOT EXISTS idx_hist_run ON asset_history(run_date);
CREATE INDEX IF NOT EXISTS idx_hist_status ON asset_history(complianceStatus);
CREATE INDEX IF NOT EXISTS idx_hist_host ON asset_history(hostname);

-- One summary per run date
CREATE TABLE IF NOT EXISTS asset_summary (
    run_date TEXT PRIMARY KEY,
    total_devices INTEGER,
    active_devices INTEGER,
    compliant_devices INTEGER,
    noncompliant_devices INTEGER,
    grace_devices INTEGER,
    compliance_pct REAL,
    workstations INTEGER,
    servers INTEGER,
    eol_devices INTEGER,
    cs_missing INTEGER,
    tanium_missing INTEGER,
    jamf_missing INTEGER
);
`

// migrationV2 adds the ingest run log
const migrationV2 = `
CREATE TABLE IF NOT EXISTS ingest_runs (
    id TEXT PRIMARY KEY,
    run_date TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    file_count INTEGER DEFAULT 0,
    sheet_count INTEGER DEFAULT 0,
    row_count INTEGER DEFAULT 0,
    device_count INTEGER DEFAULT 0,
    warning_count INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_date ON ingest_runs(run_date);
`

// migrationV3 adds per-run diagnostics
const migrationV3 = `
CREATE TABLE IF NOT EXISTS run_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES ingest_runs(id) ON DELETE CASCADE,
    event_type TEXT NOT NULL,
    source TEXT,
    message TEXT,
    details TEXT,
    timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_run ON run_events(run_id);
CREATE INDEX IF NOT EXISTS idx_events_time ON run_events(timestamp);
`

// withTx runs fn in one transaction, retrying the whole transaction while
// the database is locked by another writer.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return retry.Do(func() error {
		tx, err := d.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	},
		retry.Attempts(maxRetries),
		retry.Delay(initialBackoff),
		retry.MaxDelay(maxBackoff),
		retry.RetryIf(isBusy),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

// isBusy reports SQLITE_BUSY / SQLITE_LOCKED, including extended codes
func isBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

// Helper functions for nullable values
func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullBool(b *bool) sql.NullInt64 {
	if b == nil {
		return sql.NullInt64{}
	}
	if *b {
		return sql.NullInt64{Int64: 1, Valid: true}
	}
	return sql.NullInt64{Int64: 0, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
