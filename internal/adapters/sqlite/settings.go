// Package sqlite provides the SQLite-backed settings store.
package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/ewilliams-labs/tuner/internal/core/ports"
)

// Store implements the settings port on a single key-value table. Values are
// cached in memory; Set stages changes and Save flushes the dirty keys in one
// transaction.
type Store struct {
	db *sql.DB

	mu     sync.Mutex
	values map[string]string
	dirty  map[string]struct{}
}

var _ ports.Settings = (*Store)(nil)

// NewStore opens (or creates) the database, runs the schema migration and
// loads all stored values.
func NewStore(storagePath string) (*Store, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	store := &Store{
		db:     db,
		values: make(map[string]string),
		dirty:  make(map[string]struct{}),
	}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	if err := store.load(); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	return store, nil
}

// Close ensures the DB connection is closed gracefully.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached value for key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stages a value. It is not persisted until Save.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.values[key]; ok && cur == value {
		return
	}
	s.values[key] = value
	s.dirty[key] = struct{}{}
}

// Save flushes all staged values in one transaction.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.dirty) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=CURRENT_TIMESTAMP;
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for key := range s.dirty {
		if _, err := stmt.Exec(key, s.values[key]); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}

	s.dirty = make(map[string]struct{})
	return nil
}

// Reset wipes every stored value, persisted and staged.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM settings"); err != nil {
		return fmt.Errorf("failed to reset settings: %w", err)
	}
	s.values = make(map[string]string)
	s.dirty = make(map[string]struct{})
	return nil
}

func (s *Store) load() error {
	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("failed to scan setting: %w", err)
		}
		s.values[key] = value
	}
	return rows.Err()
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(query)
	return err
}
