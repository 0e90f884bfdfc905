// Package store persists file analyses in SQLite so unchanged files can
// skip parsing on the next run. Entries are keyed by path, content hash and
// the hash of the query programs that produced them.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite analysis cache.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// schemaVersion is kept in PRAGMA user_version. A database written with
// another version is dropped and recreated; it only holds cache entries.
const schemaVersion = 2

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("migrate: read version: %w", err)
	}
	if version != schemaVersion {
		if _, err := s.db.Exec(dropDDL); err != nil {
			return fmt.Errorf("migrate: drop: %w", err)
		}
	}
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("migrate: set version: %w", err)
	}
	return nil
}

const dropDDL = `
DROP TABLE IF EXISTS comments;
DROP TABLE IF EXISTS references_;
DROP TABLE IF EXISTS definitions;
DROP TABLE IF EXISTS scopes;
DROP TABLE IF EXISTS files;
`

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  hash            TEXT NOT NULL,
  query_hash      TEXT NOT NULL,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scopes (
  file_id         INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  scope_id        INTEGER NOT NULL,
  start_byte      INTEGER NOT NULL,
  end_byte        INTEGER NOT NULL,
  parent_id       INTEGER NOT NULL,
  PRIMARY KEY (file_id, scope_id)
);

CREATE TABLE IF NOT EXISTS definitions (
  file_id         INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  idx             INTEGER NOT NULL,
  name            TEXT NOT NULL,
  start_byte      INTEGER NOT NULL,
  end_byte        INTEGER NOT NULL,
  start_line      INTEGER NOT NULL,
  start_col       INTEGER NOT NULL,
  end_line        INTEGER NOT NULL,
  end_col         INTEGER NOT NULL,
  scope_id        INTEGER NOT NULL,
  exported        BOOLEAN NOT NULL DEFAULT FALSE,
  kind            TEXT,
  node_type       TEXT,
  signature       TEXT,
  documentation   TEXT,
  PRIMARY KEY (file_id, idx)
);

CREATE TABLE IF NOT EXISTS references_ (
  file_id         INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  idx             INTEGER NOT NULL,
  name            TEXT NOT NULL,
  start_byte      INTEGER NOT NULL,
  end_byte        INTEGER NOT NULL,
  start_line      INTEGER NOT NULL,
  start_col       INTEGER NOT NULL,
  end_line        INTEGER NOT NULL,
  end_col         INTEGER NOT NULL,
  scope_id        INTEGER NOT NULL,
  node_type       TEXT,
  target_idx      INTEGER,
  PRIMARY KEY (file_id, idx)
);

CREATE TABLE IF NOT EXISTS comments (
  file_id         INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  start_byte      INTEGER NOT NULL,
  end_byte        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_comments_file ON comments(file_id);
`

// GetMeta returns a metadata value. ok is false when the key is unset.
func (s *Store) GetMeta(key string) (value string, ok bool, err error) {
	err = s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, true, nil
}

// SetMeta stores a metadata value.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// Purge drops every cached analysis. Metadata is kept.
func (s *Store) Purge() error {
	if _, err := s.db.Exec("DELETE FROM files"); err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	return nil
}

// FileCount returns the number of cached files.
func (s *Store) FileCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&n); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return n, nil
}
