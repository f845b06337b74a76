package resilience_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/primitive"
	"github.com/tailored-agentic-units/loom/resilience"
)

func TestSaga_AllStepsSucceed(t *testing.T) {
	saga := resilience.NewSaga("order",
		resilience.SagaStep{
			Name:    "reserve",
			Forward: primitive.NewMock("reserve").WithResult("reserved"),
		},
		resilience.SagaStep{
			Name:    "charge",
			Forward: primitive.NewMock("charge").WithResult("charged"),
		},
	)

	wctx := flow.New()
	out, err := saga.Execute(context.Background(), wctx, "order-1")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out != "charged" {
		t.Errorf("output = %v, want charged", out)
	}

	cps := wctx.Checkpoints()
	if len(cps) != 2 {
		t.Fatalf("got %d checkpoints, want 2", len(cps))
	}
	if cps[0].Name != "saga_0_reserve" || cps[1].Name != "saga_1_charge" {
		t.Errorf("checkpoints = %v, want saga_0_reserve, saga_1_charge", cps)
	}
}

func TestSaga_CompensatesInReverseOrder(t *testing.T) {
	var undone []string
	undo := func(name string) *primitive.Func {
		return primitive.NewFunc("undo_"+name, func(ctx context.Context, wctx *flow.Context, input any) (any, error) {
			undone = append(undone, name)
			return nil, nil
		})
	}

	boom := errors.New("charge declined")
	saga := resilience.NewSaga("order",
		resilience.SagaStep{
			Name:       "reserve",
			Forward:    primitive.NewMock("reserve").WithResult("reservation-7"),
			Compensate: undo("reserve"),
		},
		resilience.SagaStep{
			Name:       "allocate",
			Forward:    primitive.NewMock("allocate").WithResult("allocation-9"),
			Compensate: undo("allocate"),
		},
		resilience.SagaStep{
			Name:    "charge",
			Forward: primitive.NewMock("charge").WithError(boom),
		},
	)

	_, err := saga.Execute(context.Background(), flow.New(), "order-1")

	var serr *resilience.SagaError
	if !errors.As(err, &serr) {
		t.Fatalf("error type = %T, want *SagaError", err)
	}
	if serr.FailedStep != "charge" || serr.StepIndex != 2 {
		t.Errorf("failed step = %s at %d, want charge at 2", serr.FailedStep, serr.StepIndex)
	}
	if !errors.Is(err, boom) {
		t.Error("original forward error not reachable through unwrap")
	}
	if serr.Compensated != 2 {
		t.Errorf("Compensated = %d, want 2", serr.Compensated)
	}

	if len(undone) != 2 || undone[0] != "allocate" || undone[1] != "reserve" {
		t.Errorf("compensation order = %v, want [allocate reserve]", undone)
	}
}

func TestSaga_CompensateReceivesForwardOutput(t *testing.T) {
	var compensateInput any
	saga := resilience.NewSaga("order",
		resilience.SagaStep{
			Name:    "reserve",
			Forward: primitive.NewMock("reserve").WithResult("reservation-7"),
			Compensate: primitive.NewFunc("release", func(ctx context.Context, wctx *flow.Context, input any) (any, error) {
				compensateInput = input
				return nil, nil
			}),
		},
		resilience.SagaStep{
			Name:    "charge",
			Forward: primitive.NewMock("charge").WithError(errors.New("declined")),
		},
	)

	saga.Execute(context.Background(), flow.New(), "order-1")

	// Rollback gets the step's own forward output, not the saga input.
	if compensateInput != "reservation-7" {
		t.Errorf("compensate input = %v, want reservation-7", compensateInput)
	}
}

func TestSaga_CompensationFailureNeverMasksOriginal(t *testing.T) {
	boom := errors.New("charge declined")
	saga := resilience.NewSaga("order",
		resilience.SagaStep{
			Name:       "reserve",
			Forward:    primitive.NewMock("reserve").WithResult("ok"),
			Compensate: primitive.NewMock("release").WithError(errors.New("release failed")),
		},
		resilience.SagaStep{
			Name:    "charge",
			Forward: primitive.NewMock("charge").WithError(boom),
		},
	)

	obs := &captureObserver{}
	wctx := flow.New().WithObserver(obs)

	_, err := saga.Execute(context.Background(), wctx, nil)

	var serr *resilience.SagaError
	if !errors.As(err, &serr) {
		t.Fatalf("error type = %T, want *SagaError", err)
	}
	if serr.Err != boom {
		t.Errorf("SagaError.Err = %v, want the original forward failure", serr.Err)
	}
	if len(serr.CompensationErrors) != 1 {
		t.Errorf("compensation errors = %d, want 1 collected", len(serr.CompensationErrors))
	}
	if serr.Compensated != 0 {
		t.Errorf("Compensated = %d, want 0", serr.Compensated)
	}
	if got := obs.count(resilience.EventSagaCompensationError); got != 1 {
		t.Errorf("compensation error events = %d, want 1", got)
	}
}

func TestSaga_NilCompensateSkipped(t *testing.T) {
	saga := resilience.NewSaga("order",
		resilience.SagaStep{
			Name:    "log",
			Forward: primitive.NewMock("log").WithResult("logged"),
		},
		resilience.SagaStep{
			Name:    "charge",
			Forward: primitive.NewMock("charge").WithError(errors.New("declined")),
		},
	)

	// A step without a compensating action must not abort rollback.
	_, err := saga.Execute(context.Background(), flow.New(), nil)

	var serr *resilience.SagaError
	if !errors.As(err, &serr) {
		t.Fatalf("error type = %T, want *SagaError", err)
	}
	if len(serr.CompensationErrors) != 0 {
		t.Errorf("compensation errors = %d, want 0", len(serr.CompensationErrors))
	}
}

func TestPolicy_NextDelay(t *testing.T) {
	tests := []struct {
		name    string
		policy  resilience.Policy
		attempt int
		want    func(d int64) bool
	}{
		{
			name: "fixed stays constant",
			policy: resilience.Policy{
				InitialDelay: 100, Strategy: resilience.BackoffFixed,
			},
			attempt: 3,
			want:    func(d int64) bool { return d == 100 },
		},
		{
			name: "linear grows with attempt",
			policy: resilience.Policy{
				InitialDelay: 100, Strategy: resilience.BackoffLinear,
			},
			attempt: 3,
			want:    func(d int64) bool { return d == 300 },
		},
		{
			name: "exponential doubles",
			policy: resilience.Policy{
				InitialDelay: 100, Multiplier: 2, Strategy: resilience.BackoffExponential,
			},
			attempt: 3,
			want:    func(d int64) bool { return d == 400 },
		},
		{
			name: "capped at max delay",
			policy: resilience.Policy{
				InitialDelay: 100, MaxDelay: 150, Multiplier: 2,
				Strategy: resilience.BackoffExponential,
			},
			attempt: 5,
			want:    func(d int64) bool { return d == 150 },
		},
		{
			name: "jitter stays near base",
			policy: resilience.Policy{
				InitialDelay: 1000, Jitter: 0.1, Strategy: resilience.BackoffFixed,
			},
			attempt: 1,
			want:    func(d int64) bool { return d >= 900 && d <= 1100 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := int64(tt.policy.NextDelay(tt.attempt))
			if !tt.want(got) {
				t.Errorf("NextDelay(%d) = %d, outside expected range", tt.attempt, got)
			}
		})
	}
}
