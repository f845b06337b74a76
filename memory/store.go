package memory

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors for store operations.
var (
	ErrAppendFailed = errors.New("append failed")
	ErrQueryFailed  = errors.New("query failed")
)

// DefaultMaxRecords bounds per-session history when no explicit capacity
// is configured.
const DefaultMaxRecords = 1000

// Store persists session-scoped records. Implementations evict the
// oldest records in a session once the configured capacity is exceeded.
type Store interface {
	// Append adds a record to its session, evicting oldest records
	// beyond capacity.
	Append(ctx context.Context, rec Record) error
	// Recent returns up to n records for the session, most recent first.
	// n <= 0 returns all retained records.
	Recent(ctx context.Context, sessionID string, n int) ([]Record, error)
	// Search returns records whose input or output contains query
	// (case-insensitive substring), most recent first, up to limit.
	// limit <= 0 returns all matches.
	Search(ctx context.Context, sessionID, query string, limit int) ([]Record, error)
	// Clear removes all records for the session. Unknown sessions are
	// ignored.
	Clear(ctx context.Context, sessionID string) error
}

// matches reports whether the record's input or output contains query,
// ignoring case. Shared by backends that filter client-side.
func matches(rec Record, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(rec.Input), q) ||
		strings.Contains(strings.ToLower(rec.Output), q)
}
