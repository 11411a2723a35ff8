package storage

import (
	"database/sql"
	"fmt"

	"github.com/Nastunika/ZenPlugins/src/logger"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a PersistentStore backed by a single-table SQLite database.
// One database file holds the whole connector state for one installation.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if necessary) the state database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database at %s: %w", path, err)
	}

	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS connector_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create connector_state table: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.migrateStateTable()

	logger.L.Info("State database ready", "path", path)
	return s, nil
}

// migrateStateTable brings older state databases up to the current schema.
// Early versions had no updated_at column.
func (s *SQLiteStore) migrateStateTable() {
	rows, err := s.db.Query("PRAGMA table_info(connector_state)")
	if err != nil {
		logger.L.Error("Error querying table schema for connector_state", "error", err)
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			logger.L.Error("Error scanning column info for connector_state", "error", err)
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		logger.L.Error("Error iterating over column info for connector_state", "error", err)
		return
	}

	if _, ok := columnExists["updated_at"]; !ok {
		_, err := s.db.Exec("ALTER TABLE connector_state ADD COLUMN updated_at TIMESTAMP")
		if err != nil {
			logger.L.Error("Error adding 'updated_at' column to connector_state", "error", err)
		} else {
			logger.L.Info("Added 'updated_at' column to connector_state table")
		}
	}
}

func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM connector_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("error reading state key %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO connector_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, key, value)
	if err != nil {
		return fmt.Errorf("error writing state key %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(key string) error {
	_, err := s.db.Exec("DELETE FROM connector_state WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("error deleting state key %q: %w", key, err)
	}
	return nil
}

// Flush checkpoints the WAL so the state file on disk is self-contained.
func (s *SQLiteStore) Flush() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("error flushing state database: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
