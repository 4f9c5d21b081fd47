package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// SQLiteAdapter stores records in the kv_records table created by [shared.RunMigrations].
type SQLiteAdapter struct {
	db *sql.DB
}

// NewSQLiteAdapter creates a new SQLiteAdapter with the given database connection
func NewSQLiteAdapter(db *sql.DB) *SQLiteAdapter {
	return &SQLiteAdapter{db: db}
}

// Get retrieves the value stored under key
func (a *SQLiteAdapter) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := a.db.QueryRow("SELECT value FROM kv_records WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts the value stored under key
func (a *SQLiteAdapter) Set(key string, value []byte) error {
	query := `
		INSERT INTO kv_records (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := a.db.Exec(query, key, value, time.Now()); err != nil {
		if isFullError(err) {
			return fmt.Errorf("%w: %s: %v", ErrQuotaExceeded, key, err)
		}
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key
func (a *SQLiteAdapter) Delete(key string) error {
	if _, err := a.db.Exec("DELETE FROM kv_records WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Keys lists every stored key in ascending order
func (a *SQLiteAdapter) Keys() ([]string, error) {
	rows, err := a.db.Query("SELECT key FROM kv_records ORDER BY key ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return keys, nil
}

func (a *SQLiteAdapter) Close() error {
	return a.db.Close()
}

// isFullError matches SQLITE_FULL, reported when the database or disk is full.
func isFullError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrFull
}
