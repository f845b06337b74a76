// Package memory provides bounded conversation history for workflow
// pipelines. Records are append-only input/output pairs scoped to a
// session identifier, backed by pluggable storage with oldest-first
// eviction once a capacity bound is reached.
package memory

import (
	"time"

	"github.com/google/uuid"
)

// Record is one remembered input/output pair within a session.
type Record struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Input     string            `json:"input"`
	Output    string            `json:"output"`
	Tags      map[string]string `json:"tags,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewRecord creates a Record with a fresh UUIDv7 identifier and the
// current timestamp. UUIDv7 keeps identifiers time-ordered, so lexical
// order matches insertion order across backends.
func NewRecord(sessionID, input, output string) Record {
	return Record{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		Input:     input,
		Output:    output,
		CreatedAt: time.Now().UTC(),
	}
}
