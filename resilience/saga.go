package resilience

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/observability"
	"github.com/tailored-agentic-units/loom/primitive"
)

// SagaStep pairs a forward action with its compensating action. Compensate
// may be nil for steps with no side effects to undo. When a later forward
// step fails, Compensate is executed with the forward step's own output as
// input, giving the rollback enough context to undo the work.
type SagaStep struct {
	Name       string
	Forward    primitive.Primitive
	Compensate primitive.Primitive
}

// Saga executes forward actions in order, feeding each step's output to the
// next. If any forward action fails, the compensating actions of every
// already-succeeded step run in reverse order, then the original forward
// failure is raised as a SagaError.
//
// Compensation is best-effort and non-fatal: a failing compensating action
// is logged through the observer and collected on the SagaError, but it
// never masks the original failure.
type Saga struct {
	name  string
	steps []SagaStep
}

// NewSaga composes forward/compensate pairs into a saga.
func NewSaga(name string, steps ...SagaStep) *Saga {
	return &Saga{name: name, steps: steps}
}

func (s *Saga) Name() string         { return s.name }
func (s *Saga) Kind() primitive.Kind { return primitive.KindSaga }

func (s *Saga) Execute(ctx context.Context, wctx *flow.Context, input any) (any, error) {
	current := input
	outputs := make([]any, len(s.steps))

	for i, step := range s.steps {
		out, err := step.Forward.Execute(ctx, wctx, current)
		if err != nil {
			compErrs := s.compensate(ctx, wctx, i, outputs)
			return nil, &SagaError{
				Primitive:          s.name,
				FailedStep:         step.Name,
				StepIndex:          i,
				Compensated:        i - len(compErrs),
				Err:                err,
				CompensationErrors: compErrs,
			}
		}

		outputs[i] = out
		current = out
		wctx.Checkpoint(fmt.Sprintf("saga_%d_%s", i, step.Name))
		wctx.Emit(ctx, observability.Event{
			Type:   EventSagaStepComplete,
			Level:  observability.LevelVerbose,
			Source: s.name,
			Data:   map[string]any{"step_index": i, "step": step.Name},
		})
	}

	return current, nil
}

// compensate rolls back steps [0, failed) in reverse order and returns any
// compensation failures. Rollback continues past individual failures.
func (s *Saga) compensate(ctx context.Context, wctx *flow.Context, failed int, outputs []any) []error {
	var compErrs []error

	for j := failed - 1; j >= 0; j-- {
		step := s.steps[j]
		if step.Compensate == nil {
			continue
		}

		wctx.Emit(ctx, observability.Event{
			Type:   EventSagaCompensating,
			Level:  observability.LevelWarning,
			Source: s.name,
			Data:   map[string]any{"step_index": j, "step": step.Name},
		})

		if _, err := step.Compensate.Execute(ctx, wctx, outputs[j]); err != nil {
			compErrs = append(compErrs, fmt.Errorf("compensate %s: %w", step.Name, err))
			wctx.Emit(ctx, observability.Event{
				Type:   EventSagaCompensationError,
				Level:  observability.LevelError,
				Source: s.name,
				Data: map[string]any{
					"step_index": j,
					"step":       step.Name,
					"error":      err.Error(),
				},
			})
		}
	}

	return compErrs
}
