package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/primitive"
	"github.com/tailored-agentic-units/loom/resilience"
)

func testBreakerConfig() resilience.BreakerConfig {
	return resilience.BreakerConfig{
		FailureThreshold: 3,
		Window:           time.Minute,
		Cooldown:         30 * time.Millisecond,
	}
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	failing := primitive.NewMock("op").WithError(errors.New("down"))
	cb := resilience.NewCircuitBreaker(failing, testBreakerConfig())

	wctx := flow.New()
	for i := 0; i < 3; i++ {
		if cb.State() != resilience.StateClosed {
			t.Fatalf("state before failure %d = %v, want closed", i, cb.State())
		}
		cb.Execute(context.Background(), wctx, nil)
	}

	if cb.State() != resilience.StateOpen {
		t.Fatalf("state after %d failures = %v, want open", 3, cb.State())
	}

	// Open circuit rejects without invoking the wrapped primitive.
	before := failing.Calls()
	_, err := cb.Execute(context.Background(), wctx, nil)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
	var oerr *resilience.CircuitOpenError
	if !errors.As(err, &oerr) {
		t.Fatalf("error type = %T, want *CircuitOpenError", err)
	}
	if oerr.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want positive hint", oerr.RetryAfter)
	}
	if failing.Calls() != before {
		t.Errorf("wrapped ran while open (%d calls, was %d), want rejection before execution", failing.Calls(), before)
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	calls := 0
	flaky := primitive.NewMock("op").WithFunc(func(ctx context.Context, wctx *flow.Context, input any) (any, error) {
		calls++
		if calls <= 3 {
			return nil, errors.New("down")
		}
		return "recovered", nil
	})
	cb := resilience.NewCircuitBreaker(flaky, testBreakerConfig())

	wctx := flow.New()
	for i := 0; i < 3; i++ {
		cb.Execute(context.Background(), wctx, nil)
	}
	if cb.State() != resilience.StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	// After the cool-down, one trial is admitted; its success closes
	// the circuit.
	time.Sleep(40 * time.Millisecond)
	out, err := cb.Execute(context.Background(), wctx, nil)
	if err != nil {
		t.Fatalf("trial execution error: %v", err)
	}
	if out != "recovered" {
		t.Errorf("trial output = %v, want recovered", out)
	}
	if cb.State() != resilience.StateClosed {
		t.Errorf("state after successful trial = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_FailedTrialReopens(t *testing.T) {
	failing := primitive.NewMock("op").WithError(errors.New("still down"))
	cb := resilience.NewCircuitBreaker(failing, testBreakerConfig())

	wctx := flow.New()
	for i := 0; i < 3; i++ {
		cb.Execute(context.Background(), wctx, nil)
	}

	time.Sleep(40 * time.Millisecond)
	if _, err := cb.Execute(context.Background(), wctx, nil); err == nil {
		t.Fatal("trial succeeded, want failure")
	}
	if cb.State() != resilience.StateOpen {
		t.Errorf("state after failed trial = %v, want open again", cb.State())
	}
}

func TestCircuitBreaker_SuccessKeepsClosed(t *testing.T) {
	ok := primitive.NewMock("op").WithResult("fine")
	cb := resilience.NewCircuitBreaker(ok, testBreakerConfig())

	wctx := flow.New()
	for i := 0; i < 10; i++ {
		if _, err := cb.Execute(context.Background(), wctx, nil); err != nil {
			t.Fatalf("Execute() error: %v", err)
		}
	}
	if cb.State() != resilience.StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_WindowPrunesOldFailures(t *testing.T) {
	failing := primitive.NewMock("op").WithError(errors.New("down"))
	cb := resilience.NewCircuitBreaker(failing, resilience.BreakerConfig{
		FailureThreshold: 3,
		Window:           20 * time.Millisecond,
		Cooldown:         time.Minute,
	})

	wctx := flow.New()
	cb.Execute(context.Background(), wctx, nil)
	cb.Execute(context.Background(), wctx, nil)

	// Let the first two failures age out of the rolling window.
	time.Sleep(30 * time.Millisecond)
	cb.Execute(context.Background(), wctx, nil)

	if cb.State() != resilience.StateClosed {
		t.Errorf("state = %v, want closed (stale failures pruned)", cb.State())
	}
}
