package resilience

import (
	"context"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/observability"
	"github.com/tailored-agentic-units/loom/primitive"
)

// Fallback tries an ordered sequence of primitives: the first ("primary")
// and then each alternate in order, succeeding on the first that succeeds.
// Each failover transition is individually observable. If every alternate
// fails, the aggregate of all failures is raised as a FallbackError.
type Fallback struct {
	name       string
	alternates []primitive.Primitive
}

// NewFallback composes a primary and its alternates in attempt order.
func NewFallback(name string, alternates ...primitive.Primitive) *Fallback {
	return &Fallback{name: name, alternates: alternates}
}

func (f *Fallback) Name() string         { return f.name }
func (f *Fallback) Kind() primitive.Kind { return primitive.KindFallback }

func (f *Fallback) Execute(ctx context.Context, wctx *flow.Context, input any) (any, error) {
	attempted := make([]string, 0, len(f.alternates))
	failures := make([]error, 0, len(f.alternates))

	for i, alt := range f.alternates {
		out, err := alt.Execute(ctx, wctx, input)
		if err == nil {
			wctx.Set(flow.SlotFallbackIndex, i)
			if i > 0 {
				wctx.Emit(ctx, observability.Event{
					Type:   EventFallbackRecovered,
					Level:  observability.LevelInfo,
					Source: f.name,
					Data: map[string]any{
						"served_by": alt.Name(),
						"index":     i,
						"failures":  len(failures),
					},
				})
			}
			return out, nil
		}

		attempted = append(attempted, alt.Name())
		failures = append(failures, err)

		next := ""
		if i+1 < len(f.alternates) {
			next = f.alternates[i+1].Name()
		}
		wctx.Emit(ctx, observability.Event{
			Type:   EventFallbackFailover,
			Level:  observability.LevelWarning,
			Source: f.name,
			Data: map[string]any{
				"failed": alt.Name(),
				"index":  i,
				"next":   next,
				"error":  err.Error(),
			},
		})
	}

	wctx.Emit(ctx, observability.Event{
		Type:   EventFallbackExhausted,
		Level:  observability.LevelError,
		Source: f.name,
		Data:   map[string]any{"attempted": len(attempted)},
	})

	return nil, &FallbackError{
		Primitive: f.name,
		Attempted: attempted,
		Errors:    failures,
	}
}
