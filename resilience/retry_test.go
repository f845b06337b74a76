package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/observability"
	"github.com/tailored-agentic-units/loom/primitive"
	"github.com/tailored-agentic-units/loom/resilience"
)

type captureObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func (o *captureObserver) OnEvent(ctx context.Context, event observability.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *captureObserver) count(et observability.EventType) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := 0
	for _, ev := range o.events {
		if ev.Type == et {
			n++
		}
	}
	return n
}

// fastPolicy retries immediately so tests stay quick.
func fastPolicy(attempts int) *resilience.Policy {
	return &resilience.Policy{MaxAttempts: attempts}
}

func TestRetry_SuccessFirstTry(t *testing.T) {
	mock := primitive.NewMock("op").WithResult("ok")
	retry := resilience.NewRetry(mock, fastPolicy(3))

	wctx := flow.New()
	out, err := retry.Execute(context.Background(), wctx, "in")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out != "ok" {
		t.Errorf("output = %v, want ok", out)
	}
	if mock.Calls() != 1 {
		t.Errorf("wrapped ran %d times, want exactly 1 on first-try success", mock.Calls())
	}
	if v, _ := wctx.Get(flow.SlotRetryAttempts); v != 1 {
		t.Errorf("retry attempts slot = %v, want 1", v)
	}
}

func TestRetry_RecoversAfterFailures(t *testing.T) {
	calls := 0
	flaky := primitive.NewMock("op").WithFunc(func(ctx context.Context, wctx *flow.Context, input any) (any, error) {
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("transient %d", calls)
		}
		return "recovered", nil
	})

	obs := &captureObserver{}
	wctx := flow.New().WithObserver(obs)
	retry := resilience.NewRetry(flaky, fastPolicy(5))

	out, err := retry.Execute(context.Background(), wctx, nil)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out != "recovered" {
		t.Errorf("output = %v, want recovered", out)
	}
	if calls != 3 {
		t.Errorf("wrapped ran %d times, want 3", calls)
	}
	if v, _ := wctx.Get(flow.SlotRetryAttempts); v != 3 {
		t.Errorf("retry attempts slot = %v, want 3", v)
	}
	if got := obs.count(resilience.EventRetryAttempt); got != 2 {
		t.Errorf("retry attempt events = %d, want 2", got)
	}
	if got := obs.count(resilience.EventRetryRecovered); got != 1 {
		t.Errorf("retry recovered events = %d, want 1", got)
	}
}

func TestRetry_Exhaustion(t *testing.T) {
	boom := errors.New("always fails")
	mock := primitive.NewMock("op").WithError(boom)
	retry := resilience.NewRetry(mock, fastPolicy(3))

	obs := &captureObserver{}
	wctx := flow.New().WithObserver(obs)

	_, err := retry.Execute(context.Background(), wctx, nil)

	var exh *resilience.ExhaustionError
	if !errors.As(err, &exh) {
		t.Fatalf("error type = %T, want *ExhaustionError", err)
	}
	if exh.Attempts != 3 {
		t.Errorf("ExhaustionError.Attempts = %d, want 3", exh.Attempts)
	}
	if !errors.Is(err, boom) {
		t.Error("underlying error not reachable through unwrap")
	}
	if mock.Calls() != 3 {
		t.Errorf("wrapped ran %d times, want 3", mock.Calls())
	}
	if got := obs.count(resilience.EventRetryExhausted); got != 1 {
		t.Errorf("exhausted events = %d, want 1", got)
	}
}

func TestRetry_InvalidInputNotRetried(t *testing.T) {
	bad := fmt.Errorf("missing field: %w", primitive.ErrInvalidInput)
	mock := primitive.NewMock("op").WithError(bad)
	retry := resilience.NewRetry(mock, fastPolicy(5))

	_, err := retry.Execute(context.Background(), flow.New(), nil)

	if err != bad {
		t.Errorf("error = %v, want the validation error unchanged", err)
	}
	if mock.Calls() != 1 {
		t.Errorf("wrapped ran %d times, want 1 (validation failures are not transient)", mock.Calls())
	}
}

func TestRetry_CancelledDuringDelay(t *testing.T) {
	mock := primitive.NewMock("op").WithError(errors.New("transient"))
	retry := resilience.NewRetry(mock, &resilience.Policy{
		MaxAttempts:  3,
		InitialDelay: time.Minute,
		Strategy:     resilience.BackoffFixed,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := retry.Execute(ctx, flow.New(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if mock.Calls() != 1 {
		t.Errorf("wrapped ran %d times, want 1 before cancellation", mock.Calls())
	}
}
