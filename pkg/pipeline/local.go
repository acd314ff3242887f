package pipeline

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// draftKey is the fixed local-store key for the buffered draft. One
// browser profile holds at most one anonymous draft.
const draftKey = "forecast:draft"

// KV is the local ephemeral store: simple string key-value persistence
// scoped to one browser profile, lost on explicit clear. The pipeline
// only needs get, set, and remove.
type KV interface {
	// Get returns the value and whether the key exists.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Remove deletes the key. Removing an absent key is not an error.
	Remove(key string) error
}

// LocalStore is a SQLite-backed KV implementation. Each store carries a
// stable instance ID identifying the anonymous browser profile.
type LocalStore struct {
	db         *sql.DB
	instanceID string
}

// NewLocalStore opens or creates the local store at dbPath.
func NewLocalStore(dbPath string) (*LocalStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &LocalStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.loadInstanceID(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

func (s *LocalStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// loadInstanceID reads the persisted instance ID, generating one on
// first open so the same profile keeps the same ID across sessions.
func (s *LocalStore) loadInstanceID() error {
	err := s.db.QueryRow(
		`SELECT value FROM metadata WHERE key = 'instance_id'`).Scan(&s.instanceID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load instance id: %w", err)
	}

	s.instanceID = uuid.NewString()
	if _, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES ('instance_id', ?)`, s.instanceID); err != nil {
		return fmt.Errorf("persist instance id: %w", err)
	}
	return nil
}

// InstanceID returns the stable anonymous-profile identifier.
func (s *LocalStore) InstanceID() string {
	return s.instanceID
}

// Get returns the value for key and whether it exists.
func (s *LocalStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores the value under key, replacing any existing value.
func (s *LocalStore) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Remove deletes key. Idempotent.
func (s *LocalStore) Remove(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}
