// Package logstore archives finished draft logs in sqlite so they survive a
// server restart.
package logstore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store represents the draft log database.
type Store struct {
	*sql.DB
}

// Open creates or opens the log database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db}, nil
}

// createTables creates the necessary database tables
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS draft_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			log TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS draft_logs_session ON draft_logs(session_id)
	`)
	return err
}

// Archive stores one finished draft log.
func (s *Store) Archive(sessionID string, raw []byte) error {
	_, err := s.Exec(`
		INSERT INTO draft_logs (session_id, log)
		VALUES (?, ?)
	`, sessionID, string(raw))
	if err != nil {
		return fmt.Errorf("failed to archive draft log: %v", err)
	}
	return nil
}

// Recent returns the raw JSON of the newest logs for a session, newest
// first.
func (s *Store) Recent(sessionID string, limit int) ([][]byte, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.Query(`
		SELECT log FROM draft_logs
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query draft logs: %v", err)
	}
	defer rows.Close()

	var logs [][]byte
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		logs = append(logs, []byte(raw))
	}
	return logs, rows.Err()
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.DB.Close()
}
