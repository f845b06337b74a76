package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteStore is a Store backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db         *sql.DB
	maxRecords int
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database
// and returns a new SQLiteStore. maxRecords <= 0 uses DefaultMaxRecords.
func NewSQLiteStore(db *sql.DB, maxRecords int) (*SQLiteStore, error) {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	s := &SQLiteStore{db: db, maxRecords: maxRecords}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			input TEXT NOT NULL,
			output TEXT NOT NULL,
			tags BLOB,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_records_session ON records (session_id, seq);`,
	)
	return err
}

func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	var tags []byte
	if len(rec.Tags) > 0 {
		var err error
		tags, err = json.Marshal(rec.Tags)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrAppendFailed, rec.ID, err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, session_id, input, output, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.SessionID,
		rec.Input,
		rec.Output,
		tags,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAppendFailed, rec.ID, err)
	}

	// Evict oldest records beyond the session capacity.
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM records WHERE session_id = ? AND seq NOT IN (
			SELECT seq FROM records WHERE session_id = ?
			ORDER BY seq DESC LIMIT ?
		)`,
		rec.SessionID, rec.SessionID, s.maxRecords,
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAppendFailed, rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, sessionID string, n int) ([]Record, error) {
	if n <= 0 {
		n = s.maxRecords
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, input, output, tags, created_at
		FROM records WHERE session_id = ?
		ORDER BY seq DESC LIMIT ?`,
		sessionID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrQueryFailed, sessionID, err)
	}
	defer rows.Close()

	return scanRecords(rows, sessionID)
}

func (s *SQLiteStore) Search(ctx context.Context, sessionID, query string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = s.maxRecords
	}
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, input, output, tags, created_at
		FROM records
		WHERE session_id = ? AND (input LIKE ? OR output LIKE ?)
		ORDER BY seq DESC LIMIT ?`,
		sessionID, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrQueryFailed, sessionID, err)
	}
	defer rows.Close()

	return scanRecords(rows, sessionID)
}

func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear failed: %s: %w", sessionID, err)
	}
	return nil
}

func scanRecords(rows *sql.Rows, sessionID string) ([]Record, error) {
	var recs []Record
	for rows.Next() {
		var (
			rec       Record
			tags      []byte
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Input, &rec.Output, &tags, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrQueryFailed, sessionID, err)
		}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &rec.Tags); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrQueryFailed, sessionID, err)
			}
		}
		var err error
		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrQueryFailed, sessionID, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrQueryFailed, sessionID, err)
	}
	return recs, nil
}
