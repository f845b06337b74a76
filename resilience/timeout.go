package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/observability"
	"github.com/tailored-agentic-units/loom/primitive"
)

// Timeout wraps one primitive with a deadline. If the wrapped primitive does
// not complete in time, the in-flight call is cancelled through its context
// and a TimeoutError is raised. Cancellation is best-effort: a wrapped
// primitive that ignores its context keeps running in the background, but
// its eventual result is discarded.
type Timeout struct {
	wrapped primitive.Primitive
	limit   time.Duration
}

// NewTimeout wraps p with the given deadline. A non-positive limit defaults
// to 30 seconds.
func NewTimeout(p primitive.Primitive, limit time.Duration) *Timeout {
	if limit <= 0 {
		limit = 30 * time.Second
	}
	return &Timeout{wrapped: p, limit: limit}
}

func (t *Timeout) Name() string         { return t.wrapped.Name() + ".timeout" }
func (t *Timeout) Kind() primitive.Kind { return primitive.KindTimeout }

func (t *Timeout) Execute(ctx context.Context, wctx *flow.Context, input any) (any, error) {
	tctx, cancel := context.WithTimeout(ctx, t.limit)
	defer cancel()

	type outcome struct {
		out any
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		out, err := t.wrapped.Execute(tctx, wctx, input)
		done <- outcome{out: out, err: err}
	}()

	select {
	case result := <-done:
		return result.out, result.err
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			wctx.Emit(ctx, observability.Event{
				Type:   EventTimeoutExceeded,
				Level:  observability.LevelError,
				Source: t.wrapped.Name(),
				Data:   map[string]any{"limit": t.limit.String()},
			})
			return nil, &TimeoutError{Primitive: t.wrapped.Name(), Limit: t.limit}
		}
		return nil, tctx.Err()
	}
}
