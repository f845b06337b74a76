// Package resilience provides recovery wrappers for primitives: retry with
// configurable backoff, ordered fallback, deadline enforcement, a circuit
// breaker, and saga-style compensation.
//
// These are the only primitives permitted to intercept and alter failure
// propagation. Everything else in the engine is transparent to errors.
package resilience

import (
	"math"
	"math/rand"
	"time"
)

// Strategy selects how the delay between retry attempts grows.
type Strategy string

const (
	// BackoffFixed waits InitialDelay between every attempt.
	BackoffFixed Strategy = "fixed"
	// BackoffLinear waits InitialDelay * attempt.
	BackoffLinear Strategy = "linear"
	// BackoffExponential waits InitialDelay * Multiplier^(attempt-1).
	BackoffExponential Strategy = "exponential"
)

// Policy defines retry behavior for a wrapped primitive.
type Policy struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	// Values below 1 are treated as 1.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay"`

	// MaxDelay caps the delay between retries. Zero means no cap.
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`

	// Multiplier grows the delay each retry under BackoffExponential.
	// For example, 2.0 doubles the delay each time.
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`

	// Jitter is a random factor (0-1) applied to the delay.
	// For example, 0.1 adds up to ±10% random variation.
	Jitter float64 `json:"jitter" yaml:"jitter"`

	// Strategy selects the backoff shape. Empty means BackoffExponential.
	Strategy Strategy `json:"strategy" yaml:"strategy"`
}

// DefaultPolicy returns a sensible default retry policy: 3 attempts,
// exponential backoff from 1 second doubling up to 30 seconds, 10% jitter.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
		Strategy:     BackoffExponential,
	}
}

// NoRetry returns a policy that allows a single attempt and no retries.
func NoRetry() *Policy {
	return &Policy{MaxAttempts: 1, Multiplier: 1.0}
}

// Attempts returns the effective attempt budget, never below 1.
func (p *Policy) Attempts() int {
	if p == nil || p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// NextDelay calculates the delay before the given retry. Attempt is
// 1-indexed: attempt 1 is the first retry, after the initial try. Returns 0
// for attempt values below 1.
func (p *Policy) NextDelay(attempt int) time.Duration {
	if attempt <= 0 || p.InitialDelay <= 0 {
		return 0
	}

	var delay time.Duration
	switch p.Strategy {
	case BackoffFixed:
		delay = p.InitialDelay
	case BackoffLinear:
		delay = time.Duration(attempt) * p.InitialDelay
	default:
		multiplier := p.Multiplier
		if multiplier <= 0 {
			multiplier = 2.0
		}
		delay = time.Duration(float64(p.InitialDelay) * math.Pow(multiplier, float64(attempt-1)))
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.Jitter > 0 {
		// Random variation in [1-jitter, 1+jitter].
		factor := 1 - p.Jitter + 2*p.Jitter*rand.Float64()
		delay = time.Duration(float64(delay) * factor)
	}

	return delay
}
