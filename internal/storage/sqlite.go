package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const prefsSchemaSQL = `
CREATE TABLE IF NOT EXISTS prefs (
	store      TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (store, key)
);
`

// SQLite implements Provider with a single prefs table.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database file and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(prefsSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Get returns the stored value.
func (s *SQLite) Get(store, key string) ([]byte, error) {
	if err := validName("store", store); err != nil {
		return nil, err
	}
	if err := validName("key", key); err != nil {
		return nil, err
	}
	var value []byte
	err := s.conn.QueryRow(`SELECT value FROM prefs WHERE store = ? AND key = ?`, store, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("storage: select %s/%s: %w", store, key, err)
	}
	return value, nil
}

// Put upserts the value inside a transaction.
func (s *SQLite) Put(store, key string, value []byte) error {
	if err := validName("store", store); err != nil {
		return err
	}
	if err := validName("key", key); err != nil {
		return err
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.Exec(`
		INSERT INTO prefs (store, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(store, key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, store, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage: upsert %s/%s: %w", store, key, err)
	}
	return tx.Commit()
}

// Delete removes the row if present.
func (s *SQLite) Delete(store, key string) error {
	if err := validName("store", store); err != nil {
		return err
	}
	if err := validName("key", key); err != nil {
		return err
	}
	if _, err := s.conn.Exec(`DELETE FROM prefs WHERE store = ? AND key = ?`, store, key); err != nil {
		return fmt.Errorf("storage: delete %s/%s: %w", store, key, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
