package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/observability"
	"github.com/tailored-agentic-units/loom/primitive"
)

// Retry wraps one primitive and re-executes it on failure, up to the
// policy's attempt budget, sleeping between attempts according to the
// policy's backoff strategy.
//
// Input validation failures (errors matching primitive.ErrInvalidInput) are
// never retried: they propagate immediately and unchanged. Transient errors
// are retried; exhaustion raises an ExhaustionError annotated with the
// attempt count. Success on attempt k>1 emits EventRetryRecovered, making it
// distinguishable from a first-attempt success, and the consumed attempt
// count is recorded under flow.SlotRetryAttempts either way.
type Retry struct {
	wrapped primitive.Primitive
	policy  *Policy
}

// NewRetry wraps p with the given policy. A nil policy means DefaultPolicy.
func NewRetry(p primitive.Primitive, policy *Policy) *Retry {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Retry{wrapped: p, policy: policy}
}

func (r *Retry) Name() string         { return r.wrapped.Name() + ".retry" }
func (r *Retry) Kind() primitive.Kind { return primitive.KindRetry }

func (r *Retry) Execute(ctx context.Context, wctx *flow.Context, input any) (any, error) {
	maxAttempts := r.policy.Attempts()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := r.wrapped.Execute(ctx, wctx, input)
		if err == nil {
			wctx.Set(flow.SlotRetryAttempts, attempt)
			if attempt > 1 {
				wctx.Emit(ctx, observability.Event{
					Type:   EventRetryRecovered,
					Level:  observability.LevelInfo,
					Source: r.wrapped.Name(),
					Data:   map[string]any{"attempt": attempt},
				})
			}
			return out, nil
		}

		if errors.Is(err, primitive.ErrInvalidInput) {
			// Precondition failures are not transient; retrying cannot help.
			return nil, err
		}

		lastErr = err
		delay := time.Duration(0)
		if attempt < maxAttempts {
			delay = r.policy.NextDelay(attempt)
		}

		wctx.Emit(ctx, observability.Event{
			Type:   EventRetryAttempt,
			Level:  observability.LevelWarning,
			Source: r.wrapped.Name(),
			Data: map[string]any{
				"attempt":      attempt,
				"max_attempts": maxAttempts,
				"delay":        delay.String(),
				"error":        err.Error(),
			},
		})

		if attempt == maxAttempts {
			break
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	wctx.Set(flow.SlotRetryAttempts, maxAttempts)
	wctx.Emit(ctx, observability.Event{
		Type:   EventRetryExhausted,
		Level:  observability.LevelError,
		Source: r.wrapped.Name(),
		Data: map[string]any{
			"attempts": maxAttempts,
			"error":    lastErr.Error(),
		},
	})

	return nil, &ExhaustionError{
		Primitive: r.wrapped.Name(),
		Attempts:  maxAttempts,
		Err:       lastErr,
	}
}
