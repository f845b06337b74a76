// Package instrument wraps primitives with spans, metrics, and
// checkpoints. The wrapper is transparent: input, output, and errors
// pass through unchanged while each execution produces one span named
// primitive.<kind>.execute, one metric sample, and one checkpoint.
package instrument

import (
	"context"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/metrics"
	"github.com/tailored-agentic-units/loom/primitive"
	"github.com/tailored-agentic-units/loom/trace"
)

// Instrumented wraps a primitive with tracing and metrics collection.
type Instrumented struct {
	wrapped   primitive.Primitive
	tracer    *trace.Tracer
	collector *metrics.Collector
	cost      float64
}

// Option configures an Instrumented wrapper.
type Option func(*Instrumented)

// WithTracer sets the tracer used to export spans. Without one, spans
// are not exported but metrics and checkpoints are still recorded.
func WithTracer(t *trace.Tracer) Option {
	return func(in *Instrumented) { in.tracer = t }
}

// WithCollector sets the metrics collector. Defaults to the process-wide
// collector.
func WithCollector(c *metrics.Collector) Option {
	return func(in *Instrumented) { in.collector = c }
}

// WithCost attaches a per-execution monetary cost, accumulated into the
// wrapped primitive's cost total on every execution.
func WithCost(cost float64) Option {
	return func(in *Instrumented) { in.cost = cost }
}

// New wraps p with instrumentation.
func New(p primitive.Primitive, opts ...Option) *Instrumented {
	in := &Instrumented{
		wrapped:   p,
		collector: metrics.Default(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

func (in *Instrumented) Name() string         { return in.wrapped.Name() }
func (in *Instrumented) Kind() primitive.Kind { return primitive.KindInstrumented }

// Wrapped returns the underlying primitive.
func (in *Instrumented) Wrapped() primitive.Primitive { return in.wrapped }

func (in *Instrumented) Execute(ctx context.Context, wctx *flow.Context, input any) (any, error) {
	// Root executions arrive without trace identity; generate one so
	// every span below shares a trace. Nested executions only advance
	// the span so parent links chain correctly.
	if wctx.TraceID == "" {
		wctx.TraceID = trace.NewTraceID()
		wctx.SpanID = trace.NewSpanID()
		wctx.TraceFlags = trace.FlagSampled
	} else {
		wctx.AdvanceSpan()
	}

	name := in.wrapped.Name()
	spanName := fmt.Sprintf("primitive.%s.execute", in.wrapped.Kind())

	var span *trace.ActiveSpan
	if in.tracer != nil {
		span = in.tracer.Start(spanName, wctx.TraceID, wctx.SpanID, wctx.ParentSpanID)
		span.SetAttribute("primitive.name", name)
		span.SetAttribute("primitive.kind", string(in.wrapped.Kind()))
		span.SetAttribute("correlation_id", wctx.CorrelationID)
		if size, ok := inputSize(input); ok {
			span.SetAttribute("input.size", size)
		}
	}

	in.collector.Begin(name)
	start := time.Now()

	out, err := in.wrapped.Execute(ctx, wctx, input)

	elapsed := time.Since(start)
	in.collector.End(name, elapsed, err != nil, in.cost)
	wctx.Checkpoint(spanName)

	if span != nil {
		span.End(ctx, err)
	}
	return out, err
}

// inputSize reports a cheap size measure for the span. Only types whose
// length is known without serialization are measured.
func inputSize(input any) (int, bool) {
	switch v := input.(type) {
	case string:
		return len(v), true
	case []byte:
		return len(v), true
	case []any:
		return len(v), true
	case map[string]any:
		return len(v), true
	default:
		return 0, false
	}
}
