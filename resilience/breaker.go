package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/observability"
	"github.com/tailored-agentic-units/loom/primitive"
)

// BreakerState is the circuit breaker's current disposition.
type BreakerState string

const (
	// StateClosed passes calls through, counting failures.
	StateClosed BreakerState = "closed"
	// StateOpen rejects calls without invoking the wrapped primitive.
	StateOpen BreakerState = "open"
	// StateHalfOpen allows exactly one trial call to probe recovery.
	StateHalfOpen BreakerState = "half-open"
)

// BreakerConfig tunes a CircuitBreaker. The zero value is replaced by
// DefaultBreakerConfig, so no configuration is required to function.
type BreakerConfig struct {
	// FailureThreshold is how many failures within Window open the circuit.
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold"`

	// Window is the rolling interval over which failures are counted.
	Window time.Duration `json:"window" yaml:"window"`

	// Cooldown is how long an open circuit waits before allowing a trial.
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`
}

// DefaultBreakerConfig returns the default thresholds: 5 failures within
// 1 minute opens the circuit, with a 30 second cool-down.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Window:           time.Minute,
		Cooldown:         30 * time.Second,
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	def := DefaultBreakerConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.Cooldown <= 0 {
		c.Cooldown = def.Cooldown
	}
	return c
}

// CircuitBreaker wraps one primitive with failure-rate protection.
//
// While closed, calls pass through and failures are counted over a rolling
// window. Once the threshold is exceeded the circuit opens: calls fail
// immediately with a CircuitOpenError, sparing the failing dependency. After
// the cool-down elapses the breaker moves to half-open and admits exactly one
// trial call; its outcome decides whether the circuit re-closes or re-opens.
//
// The failure counter is a process-wide property of this wrapper instance:
// compose one breaker per protected dependency and share it across callers.
type CircuitBreaker struct {
	wrapped primitive.Primitive
	cfg     BreakerConfig

	mu       sync.Mutex
	state    BreakerState
	failures []time.Time
	openedAt time.Time
	inTrial  bool
}

// NewCircuitBreaker wraps p with the given thresholds. Zero-value fields in
// cfg fall back to DefaultBreakerConfig.
func NewCircuitBreaker(p primitive.Primitive, cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		wrapped: p,
		cfg:     cfg.withDefaults(),
		state:   StateClosed,
	}
}

func (cb *CircuitBreaker) Name() string         { return cb.wrapped.Name() + ".breaker" }
func (cb *CircuitBreaker) Kind() primitive.Kind { return primitive.KindCircuitBreaker }

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Execute(ctx context.Context, wctx *flow.Context, input any) (any, error) {
	if rejection := cb.admit(ctx, wctx); rejection != nil {
		return nil, rejection
	}

	out, err := cb.wrapped.Execute(ctx, wctx, input)
	cb.record(ctx, wctx, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// admit decides whether this call may proceed, transitioning open→half-open
// when the cool-down has elapsed. Returns a rejection error or nil.
func (cb *CircuitBreaker) admit(ctx context.Context, wctx *flow.Context) error {
	cb.mu.Lock()
	now := time.Now()

	switch cb.state {
	case StateClosed:
		cb.mu.Unlock()
		return nil

	case StateOpen:
		if now.Sub(cb.openedAt) < cb.cfg.Cooldown {
			failures := len(cb.failures)
			retryAfter := cb.cfg.Cooldown - now.Sub(cb.openedAt)
			cb.mu.Unlock()
			cb.emitRejected(ctx, wctx, failures)
			return &CircuitOpenError{
				Primitive:  cb.wrapped.Name(),
				Failures:   failures,
				RetryAfter: retryAfter,
			}
		}
		cb.state = StateHalfOpen
		cb.inTrial = true
		cb.mu.Unlock()
		wctx.Emit(ctx, observability.Event{
			Type:   EventBreakerHalfOpen,
			Level:  observability.LevelInfo,
			Source: cb.wrapped.Name(),
			Data:   map[string]any{"cooldown": cb.cfg.Cooldown.String()},
		})
		return nil

	default: // StateHalfOpen
		if cb.inTrial {
			failures := len(cb.failures)
			cb.mu.Unlock()
			cb.emitRejected(ctx, wctx, failures)
			return &CircuitOpenError{
				Primitive:  cb.wrapped.Name(),
				Failures:   failures,
				RetryAfter: cb.cfg.Cooldown,
			}
		}
		cb.inTrial = true
		cb.mu.Unlock()
		return nil
	}
}

// record updates breaker state from the outcome of a permitted call.
func (cb *CircuitBreaker) record(ctx context.Context, wctx *flow.Context, err error) {
	cb.mu.Lock()
	now := time.Now()
	wasTrial := cb.state == StateHalfOpen
	cb.inTrial = false

	if err == nil {
		if wasTrial {
			cb.state = StateClosed
			cb.failures = nil
			cb.mu.Unlock()
			wctx.Emit(ctx, observability.Event{
				Type:   EventBreakerClose,
				Level:  observability.LevelInfo,
				Source: cb.wrapped.Name(),
				Data:   map[string]any{},
			})
			return
		}
		cb.prune(now)
		cb.mu.Unlock()
		return
	}

	if wasTrial {
		cb.state = StateOpen
		cb.openedAt = now
		cb.mu.Unlock()
		cb.emitOpen(ctx, wctx, err)
		return
	}

	cb.failures = append(cb.failures, now)
	cb.prune(now)
	if len(cb.failures) >= cb.cfg.FailureThreshold {
		cb.state = StateOpen
		cb.openedAt = now
		cb.mu.Unlock()
		cb.emitOpen(ctx, wctx, err)
		return
	}
	cb.mu.Unlock()
}

// prune drops failure timestamps older than the rolling window.
// Caller must hold cb.mu.
func (cb *CircuitBreaker) prune(now time.Time) {
	cutoff := now.Add(-cb.cfg.Window)
	kept := cb.failures[:0]
	for _, ts := range cb.failures {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	cb.failures = kept
}

func (cb *CircuitBreaker) emitOpen(ctx context.Context, wctx *flow.Context, err error) {
	wctx.Emit(ctx, observability.Event{
		Type:   EventBreakerOpen,
		Level:  observability.LevelError,
		Source: cb.wrapped.Name(),
		Data: map[string]any{
			"threshold": cb.cfg.FailureThreshold,
			"cooldown":  cb.cfg.Cooldown.String(),
			"error":     err.Error(),
		},
	})
}

func (cb *CircuitBreaker) emitRejected(ctx context.Context, wctx *flow.Context, failures int) {
	wctx.Emit(ctx, observability.Event{
		Type:   EventBreakerRejected,
		Level:  observability.LevelWarning,
		Source: cb.wrapped.Name(),
		Data:   map[string]any{"failures": failures},
	})
}
