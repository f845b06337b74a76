package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type fileStore struct {
	root       string
	maxRecords int
}

// NewFileStore creates a Store backed by the filesystem. Each session is
// one JSON-lines file under root, named <session>.jsonl. maxRecords <= 0
// uses DefaultMaxRecords.
func NewFileStore(root string, maxRecords int) Store {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &fileStore{root: root, maxRecords: maxRecords}
}

func (s *fileStore) path(sessionID string) string {
	// Session identifiers may not contain path separators.
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(sessionID)
	return filepath.Join(s.root, name+".jsonl")
}

func (s *fileStore) Append(_ context.Context, rec Record) error {
	recs, err := s.load(rec.SessionID)
	if err != nil {
		return err
	}

	recs = append(recs, rec)
	if over := len(recs) - s.maxRecords; over > 0 {
		recs = recs[over:]
	}
	return s.write(rec.SessionID, recs)
}

func (s *fileStore) Recent(_ context.Context, sessionID string, n int) ([]Record, error) {
	recs, err := s.load(sessionID)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n > len(recs) {
		n = len(recs)
	}

	out := make([]Record, 0, n)
	for i := len(recs) - 1; i >= len(recs)-n; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

func (s *fileStore) Search(_ context.Context, sessionID, query string, limit int) ([]Record, error) {
	recs, err := s.load(sessionID)
	if err != nil {
		return nil, err
	}

	var out []Record
	for i := len(recs) - 1; i >= 0; i-- {
		if !matches(recs[i], query) {
			continue
		}
		out = append(out, recs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fileStore) Clear(_ context.Context, sessionID string) error {
	if err := os.Remove(s.path(sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear failed: %s: %w", sessionID, err)
	}
	return nil
}

func (s *fileStore) load(sessionID string) ([]Record, error) {
	f, err := os.Open(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrQueryFailed, sessionID, err)
	}
	defer f.Close()

	var recs []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrQueryFailed, sessionID, err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrQueryFailed, sessionID, err)
	}
	return recs, nil
}

// write replaces the session file atomically via a temp file and rename.
func (s *fileStore) write(sessionID string, recs []Record) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAppendFailed, sessionID, err)
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAppendFailed, sessionID, err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("%w: %s: %v", ErrAppendFailed, sessionID, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrAppendFailed, sessionID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrAppendFailed, sessionID, err)
	}

	if err := os.Rename(tmpName, s.path(sessionID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrAppendFailed, sessionID, err)
	}
	return nil
}
