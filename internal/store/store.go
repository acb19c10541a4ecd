// Package store persists the local study cache in SQLite: a mirror of the
// mastery ledger for instant startup display, recent question/answer
// exchanges, and small key/value preferences.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite handle and hands out repositories.
type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database at dsn, applies recommended pragmas,
// and creates any missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// MasteryRepo returns the mastery mirror backed by this store.
func (s *Store) MasteryRepo() MasteryRepo {
	return &masteryRepo{db: s.db}
}

// HistoryRepo returns the question history backed by this store.
func (s *Store) HistoryRepo() HistoryRepo {
	return &historyRepo{db: s.db}
}

// PrefsRepo returns the preference store backed by this store.
func (s *Store) PrefsRepo() PrefsRepo {
	return &prefsRepo{db: s.db}
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// migrate creates the schema. Statements are idempotent so Open can run
// them on every start.
func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS mastery (
			concept       TEXT PRIMARY KEY,
			level         REAL NOT NULL,
			attempts      INTEGER NOT NULL DEFAULT 0,
			last_assessed TIMESTAMP,
			updated_at    TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			question        TEXT NOT NULL,
			answer          TEXT NOT NULL,
			model           TEXT NOT NULL DEFAULT '',
			retrieved_count INTEGER NOT NULL DEFAULT 0,
			created_at      TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_created_at ON history (created_at)`,
		`CREATE TABLE IF NOT EXISTS prefs (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:30], err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path under the user data
// directory: $XDG_DATA_HOME/studiz/studiz.db, falling back to
// ~/.local/share/studiz/studiz.db. Explicit overrides come from
// configuration, not from here.
func DefaultDBPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "studiz", "studiz.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
