package trace

import (
	"context"
	"time"
)

// Tracer opens spans and hands finished ones to an Exporter.
type Tracer struct {
	exporter Exporter
}

// NewTracer creates a Tracer backed by the given exporter. A nil exporter
// yields a tracer that discards spans.
func NewTracer(exporter Exporter) *Tracer {
	if exporter == nil {
		exporter = NoOpExporter{}
	}
	return &Tracer{exporter: exporter}
}

// Start opens a span with the given identity. The caller supplies the
// identifiers so span lineage stays consistent with the workflow context that
// owns them.
func (t *Tracer) Start(name, traceID, spanID, parentSpanID string) *ActiveSpan {
	return &ActiveSpan{
		tracer: t,
		span: Span{
			TraceID:      traceID,
			SpanID:       spanID,
			ParentSpanID: parentSpanID,
			Name:         name,
			Start:        time.Now(),
		},
	}
}

// Shutdown flushes the underlying exporter.
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.exporter.Shutdown(ctx)
}

// ActiveSpan is an in-flight span. It is exported exactly once, on End.
type ActiveSpan struct {
	tracer *Tracer
	span   Span
	ended  bool
}

// SetAttribute records an attribute on the in-flight span.
func (s *ActiveSpan) SetAttribute(key string, value any) {
	s.span.SetAttribute(key, value)
}

// End closes the span with StatusOK, or StatusError when err is non-nil, and
// exports it. Calls after the first are ignored.
func (s *ActiveSpan) End(ctx context.Context, err error) {
	if s.ended {
		return
	}
	s.ended = true
	s.span.End = time.Now()
	if err != nil {
		s.span.Status = StatusError
		s.span.Error = err.Error()
	} else {
		s.span.Status = StatusOK
	}
	_ = s.tracer.exporter.ExportSpans(ctx, []Span{s.span})
}
