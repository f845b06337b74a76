package primitive

import (
	"context"
	"sync"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/observability"
)

// Parallel fans one input out to every branch concurrently and waits for all
// of them to finish.
//
// Each branch receives its own child context (fresh span, isolated
// checkpoints and state) so sibling branches never observe each other's
// writes. The fan-in is non-short-circuiting: a branch failure does not
// cancel siblings still in flight; every branch always reaches a terminal
// state before Parallel returns.
//
// On success the output is a []any of branch outputs in declaration order,
// regardless of completion order. On failure every branch error is collected
// into one ParallelError, again in declaration order.
type Parallel struct {
	name     string
	branches []Primitive
}

// NewParallel composes branches into a parallel fan-out.
func NewParallel(name string, branches ...Primitive) *Parallel {
	return &Parallel{name: name, branches: branches}
}

// And appends more branches and returns the fan-out, enabling fluent
// composition: NewParallel("p", a).And(b).And(c).
func (p *Parallel) And(branches ...Primitive) *Parallel {
	p.branches = append(p.branches, branches...)
	return p
}

func (p *Parallel) Name() string { return p.name }
func (p *Parallel) Kind() Kind   { return KindParallel }

// Branches returns the composed branches in declaration order.
func (p *Parallel) Branches() []Primitive {
	out := make([]Primitive, len(p.branches))
	copy(out, p.branches)
	return out
}

func (p *Parallel) Execute(ctx context.Context, wctx *flow.Context, input any) (any, error) {
	wctx.Emit(ctx, observability.Event{
		Type:   EventParallelStart,
		Level:  observability.LevelVerbose,
		Source: p.name,
		Data:   map[string]any{"branches": len(p.branches)},
	})

	if len(p.branches) == 0 {
		p.emitComplete(ctx, wctx, 0)
		return []any{}, nil
	}

	results := make([]any, len(p.branches))
	failures := make([]*BranchError, len(p.branches))

	var wg sync.WaitGroup
	for i, branch := range p.branches {
		i, branch := i, branch
		wg.Add(1)
		child := wctx.Child()

		go func() {
			defer wg.Done()

			child.Emit(ctx, observability.Event{
				Type:   EventBranchStart,
				Level:  observability.LevelVerbose,
				Source: p.name,
				Data:   map[string]any{"branch_index": i, "branch": branch.Name()},
			})

			out, err := branch.Execute(ctx, child, input)

			child.Emit(ctx, observability.Event{
				Type:   EventBranchComplete,
				Level:  levelFor(err),
				Source: p.name,
				Data: map[string]any{
					"branch_index": i,
					"branch":       branch.Name(),
					"error":        err != nil,
				},
			})

			if err != nil {
				failures[i] = &BranchError{Index: i, Branch: branch.Name(), Err: err}
				return
			}
			results[i] = out
		}()
	}
	wg.Wait()

	var collected []*BranchError
	for _, be := range failures {
		if be != nil {
			collected = append(collected, be)
		}
	}

	p.emitComplete(ctx, wctx, len(collected))

	if len(collected) > 0 {
		return nil, &ParallelError{
			Primitive: p.name,
			Branches:  len(p.branches),
			Errors:    collected,
		}
	}
	return results, nil
}

func (p *Parallel) emitComplete(ctx context.Context, wctx *flow.Context, failed int) {
	level := observability.LevelVerbose
	if failed > 0 {
		level = observability.LevelError
	}
	wctx.Emit(ctx, observability.Event{
		Type:   EventParallelComplete,
		Level:  level,
		Source: p.name,
		Data: map[string]any{
			"branches": len(p.branches),
			"failed":   failed,
		},
	})
}
