package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/observability"
	"github.com/tailored-agentic-units/loom/primitive"
)

// Events emitted by the Memory primitive.
const (
	EventRecord      observability.EventType = "memory.record"
	EventRecordError observability.EventType = "memory.record_error"
)

// BaggageSessionKey is the baggage entry consulted for the session
// identifier when the Memory primitive has none configured.
const BaggageSessionKey = "session_id"

// Memory is a transparent wrapper that records each successful
// input/output pair of the wrapped primitive into a Store. Failures of
// the wrapped primitive propagate unchanged and are not recorded; a
// failing store write is reported as a warning event and never fails
// the execution.
type Memory struct {
	wrapped   primitive.Primitive
	store     Store
	sessionID string
}

// NewMemory wraps p so that successful executions are recorded into
// store under sessionID. An empty sessionID falls back at execution time
// to the context's "session_id" baggage entry, then to its correlation
// identifier.
func NewMemory(p primitive.Primitive, store Store, sessionID string) *Memory {
	return &Memory{wrapped: p, store: store, sessionID: sessionID}
}

func (m *Memory) Name() string         { return m.wrapped.Name() + ".memory" }
func (m *Memory) Kind() primitive.Kind { return primitive.KindMemory }

// Wrapped returns the underlying primitive.
func (m *Memory) Wrapped() primitive.Primitive { return m.wrapped }

func (m *Memory) Execute(ctx context.Context, wctx *flow.Context, input any) (any, error) {
	out, err := m.wrapped.Execute(ctx, wctx, input)
	if err != nil {
		return nil, err
	}

	rec := NewRecord(m.session(wctx), encode(input), encode(out))
	if err := m.store.Append(ctx, rec); err != nil {
		wctx.Emit(ctx, observability.Event{
			Type:   EventRecordError,
			Level:  observability.LevelWarning,
			Source: m.Name(),
			Data: map[string]any{
				"session_id": rec.SessionID,
				"error":      err.Error(),
			},
		})
		return out, nil
	}

	wctx.Emit(ctx, observability.Event{
		Type:   EventRecord,
		Level:  observability.LevelVerbose,
		Source: m.Name(),
		Data: map[string]any{
			"session_id": rec.SessionID,
			"record_id":  rec.ID,
		},
	})
	return out, nil
}

func (m *Memory) session(wctx *flow.Context) string {
	if m.sessionID != "" {
		return m.sessionID
	}
	if sid, ok := wctx.Baggage(BaggageSessionKey); ok {
		return sid
	}
	return wctx.CorrelationID
}

// encode renders an arbitrary value as its stored text form. Strings
// pass through, everything else is canonical JSON.
func encode(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
