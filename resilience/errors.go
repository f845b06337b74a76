package resilience

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCircuitOpen is the sentinel matched by errors.Is when a circuit breaker
// rejects a call without invoking the wrapped primitive.
var ErrCircuitOpen = errors.New("circuit open")

// ExhaustionError is raised when a Retry gives up: every attempt failed. It
// carries the attempt count and the last underlying error.
type ExhaustionError struct {
	// Primitive is the wrapped primitive's name.
	Primitive string

	// Attempts is how many times the wrapped primitive was invoked.
	Attempts int

	// Err is the error from the final attempt.
	Err error
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("%s: retry exhausted after %d attempts: %v", e.Primitive, e.Attempts, e.Err)
}

func (e *ExhaustionError) Unwrap() error {
	return e.Err
}

// FallbackError aggregates the failures of every attempted alternate. Errors
// are retained in attempt order and reachable through multi-error unwrapping.
type FallbackError struct {
	// Primitive is the fallback primitive's name.
	Primitive string

	// Attempted names each alternate that was tried, in order.
	Attempted []string

	// Errors holds one failure per attempted alternate, in attempt order.
	Errors []error
}

func (e *FallbackError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = fmt.Sprintf("%s: %v", e.Attempted[i], err)
	}
	return fmt.Sprintf("%s: all %d alternates failed: %s",
		e.Primitive, len(e.Errors), strings.Join(parts, "; "))
}

// Unwrap returns every underlying error for errors.Is / errors.As.
func (e *FallbackError) Unwrap() []error {
	return e.Errors
}

// TimeoutError is raised when a wrapped primitive does not complete within
// its deadline.
type TimeoutError struct {
	// Primitive is the wrapped primitive's name.
	Primitive string

	// Limit is the configured deadline.
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Primitive, e.Limit)
}

// Is lets errors.Is(err, context.DeadlineExceeded) match timeout failures.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrDeadline
}

// ErrDeadline is the sentinel matched by errors.Is for timeout failures.
var ErrDeadline = errors.New("deadline exceeded")

// CircuitOpenError reports a short-circuited call: the breaker rejected the
// request without invoking the wrapped primitive.
type CircuitOpenError struct {
	// Primitive is the wrapped primitive's name.
	Primitive string

	// Failures is the rolling failure count that tripped the circuit.
	Failures int

	// RetryAfter is how long until the breaker will allow a trial call.
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("%s: circuit open after %d failures, retry in %s",
		e.Primitive, e.Failures, e.RetryAfter.Round(time.Millisecond))
}

func (e *CircuitOpenError) Unwrap() error {
	return ErrCircuitOpen
}

// SagaError is raised when a forward action fails. It carries the original
// forward failure plus any compensation failures encountered while rolling
// back; compensation failures never replace the original error.
type SagaError struct {
	// Primitive is the saga's name.
	Primitive string

	// FailedStep names the forward step that failed.
	FailedStep string

	// StepIndex is the failed step's 0-based position.
	StepIndex int

	// Compensated is how many already-succeeded steps were rolled back.
	Compensated int

	// Err is the original forward failure.
	Err error

	// CompensationErrors holds best-effort rollback failures, if any.
	CompensationErrors []error
}

func (e *SagaError) Error() string {
	msg := fmt.Sprintf("%s: step %d (%s) failed: %v", e.Primitive, e.StepIndex, e.FailedStep, e.Err)
	if len(e.CompensationErrors) > 0 {
		msg += fmt.Sprintf(" (%d compensation failures)", len(e.CompensationErrors))
	}
	return msg
}

// Unwrap returns the original forward failure, never a compensation error.
func (e *SagaError) Unwrap() error {
	return e.Err
}
