// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package unitstate is the unit's persistent key/value store. It
// outlives a single hook invocation and holds the paused flag and
// generated credentials.
package unitstate

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	_ "github.com/mattn/go-sqlite3"
)

var logger = loggo.GetLogger("dashboard.unitstate")

const (
	// PausedKey is set while the unit is paused by the pause action.
	PausedKey = "unit-paused"

	schemaDDL = `
CREATE TABLE IF NOT EXISTS kv (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`
)

// Store is a SQLite backed key/value store.
type Store struct {
	db *sql.DB
}

// Open opens, creating if needed, the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Annotatef(err, "creating state directory")
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Annotatef(err, "opening unit state %q", path)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, errors.Annotatef(err, "creating unit state schema")
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return errors.Trace(s.db.Close())
}

// Get returns the value stored under key, or a NotFound error.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", errors.NotFoundf("unit state %q", key)
	} else if err != nil {
		return "", errors.Annotatef(err, "reading unit state %q", key)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)", key, value)
	return errors.Annotatef(err, "writing unit state %q", key)
}

// Unset removes key. Removing a missing key is not an error.
func (s *Store) Unset(key string) error {
	_, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key)
	return errors.Annotatef(err, "removing unit state %q", key)
}

// Memoize returns the value stored under key, calling generate and
// storing its result the first time.
func (s *Store) Memoize(key string, generate func() (string, error)) (string, error) {
	value, err := s.Get(key)
	if err == nil {
		return value, nil
	} else if !errors.IsNotFound(err) {
		return "", errors.Trace(err)
	}
	if value, err = generate(); err != nil {
		return "", errors.Annotatef(err, "generating %q", key)
	}
	logger.Debugf("generated new value for %q", key)
	if err := s.Set(key, value); err != nil {
		return "", errors.Trace(err)
	}
	return value, nil
}

// IsPaused reports whether the unit has been paused.
func (s *Store) IsPaused() (bool, error) {
	_, err := s.Get(PausedKey)
	if errors.IsNotFound(err) {
		return false, nil
	} else if err != nil {
		return false, errors.Trace(err)
	}
	return true, nil
}

// SetPaused records or clears the paused flag.
func (s *Store) SetPaused(paused bool) error {
	if paused {
		return s.Set(PausedKey, "true")
	}
	return s.Unset(PausedKey)
}
