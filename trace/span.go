package trace

import "time"

// Status indicates how a span finished.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Span is a finished unit of traced work. TraceID, SpanID, and ParentSpanID
// carry the parent/child linkage a tracing backend needs to reconstruct the
// execution tree.
type Span struct {
	TraceID      string         `json:"trace_id"`
	SpanID       string         `json:"span_id"`
	ParentSpanID string         `json:"parent_span_id,omitempty"`
	Name         string         `json:"name"`
	Start        time.Time      `json:"start"`
	End          time.Time      `json:"end"`
	Status       Status         `json:"status"`
	Error        string         `json:"error,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

// Duration returns the elapsed wall time between span start and end.
func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// SetAttribute stores an attribute on the span, allocating the map lazily.
func (s *Span) SetAttribute(key string, value any) {
	if s.Attributes == nil {
		s.Attributes = make(map[string]any)
	}
	s.Attributes[key] = value
}
