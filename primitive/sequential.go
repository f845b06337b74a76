package primitive

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/observability"
)

// Sequential chains primitives so that each step's output becomes the next
// step's input.
//
// All steps execute on the same flow.Context (not children), so checkpoints
// and state accumulate visibly across the whole chain. After each successful
// step a checkpoint named "step_{index}_{name}" is recorded. Execution is
// fail-fast: the first step to return an error aborts the chain, and that
// error propagates to the caller unchanged; Sequential adds no wrapping of
// its own.
type Sequential struct {
	name  string
	steps []Primitive
}

// NewSequential composes steps into a sequential chain.
func NewSequential(name string, steps ...Primitive) *Sequential {
	return &Sequential{name: name, steps: steps}
}

// Then appends more steps and returns the chain, enabling fluent
// composition: NewSequential("p", a).Then(b).Then(c).
func (s *Sequential) Then(steps ...Primitive) *Sequential {
	s.steps = append(s.steps, steps...)
	return s
}

func (s *Sequential) Name() string { return s.name }
func (s *Sequential) Kind() Kind   { return KindSequential }

// Steps returns the composed steps in execution order.
func (s *Sequential) Steps() []Primitive {
	out := make([]Primitive, len(s.steps))
	copy(out, s.steps)
	return out
}

func (s *Sequential) Execute(ctx context.Context, wctx *flow.Context, input any) (any, error) {
	wctx.Emit(ctx, observability.Event{
		Type:   EventSequentialStart,
		Level:  observability.LevelVerbose,
		Source: s.name,
		Data:   map[string]any{"steps": len(s.steps)},
	})

	current := input
	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			s.emitComplete(ctx, wctx, i, err)
			return nil, err
		}

		wctx.Emit(ctx, observability.Event{
			Type:   EventStepStart,
			Level:  observability.LevelVerbose,
			Source: s.name,
			Data:   map[string]any{"step_index": i, "step": step.Name()},
		})

		out, err := step.Execute(ctx, wctx, current)

		wctx.Emit(ctx, observability.Event{
			Type:   EventStepComplete,
			Level:  levelFor(err),
			Source: s.name,
			Data: map[string]any{
				"step_index": i,
				"step":       step.Name(),
				"error":      err != nil,
			},
		})

		if err != nil {
			s.emitComplete(ctx, wctx, i, err)
			return nil, err
		}

		current = out
		wctx.Checkpoint(fmt.Sprintf("step_%d_%s", i, step.Name()))
	}

	s.emitComplete(ctx, wctx, len(s.steps), nil)
	return current, nil
}

func (s *Sequential) emitComplete(ctx context.Context, wctx *flow.Context, completed int, err error) {
	wctx.Emit(ctx, observability.Event{
		Type:   EventSequentialComplete,
		Level:  levelFor(err),
		Source: s.name,
		Data: map[string]any{
			"steps_completed": completed,
			"error":           err != nil,
		},
	})
}

func levelFor(err error) observability.Level {
	if err != nil {
		return observability.LevelError
	}
	return observability.LevelVerbose
}
