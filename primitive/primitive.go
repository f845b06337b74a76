package primitive

import (
	"context"

	"github.com/tailored-agentic-units/loom/flow"
)

// Kind identifies a concrete primitive variant. Instrumentation uses it for
// span naming and metric labels.
type Kind string

const (
	KindFunc           Kind = "func"
	KindMock           Kind = "mock"
	KindSequential     Kind = "sequential"
	KindParallel       Kind = "parallel"
	KindConditional    Kind = "conditional"
	KindSwitch         Kind = "switch"
	KindRouter         Kind = "router"
	KindRetry          Kind = "retry"
	KindFallback       Kind = "fallback"
	KindTimeout        Kind = "timeout"
	KindCircuitBreaker Kind = "circuitbreaker"
	KindSaga           Kind = "saga"
	KindCache          Kind = "cache"
	KindMemory         Kind = "memory"
	KindInstrumented   Kind = "instrumented"
)

// Primitive is a composable unit of asynchronous work: one typed input, one
// typed output, a workflow context threaded through, and a possible failure.
//
// The interface is the engine's single dispatch point. Concrete variants
// (control flow, recovery, performance, instrumentation) all implement it, so
// composition is a tree of Primitives with no reflection involved. Each
// composed instance owns its children exclusively; the same child value must
// not be shared between two composed trees that execute concurrently.
//
// Execute may suspend on the supplied context.Context (awaiting I/O or child
// primitives); implementations should not block a worker for I/O without
// honoring ctx cancellation.
type Primitive interface {
	// Name returns the primitive's identifier, used for checkpoints,
	// events, and metric keys.
	Name() string

	// Kind returns the concrete variant.
	Kind() Kind

	// Execute runs the primitive on input under the given contexts.
	Execute(ctx context.Context, wctx *flow.Context, input any) (any, error)
}

// ExecuteFunc is the function form of the Primitive contract.
type ExecuteFunc func(ctx context.Context, wctx *flow.Context, input any) (any, error)

// Func adapts a plain function into a Primitive. It is the usual leaf of a
// composition tree.
type Func struct {
	name string
	fn   ExecuteFunc
}

// NewFunc creates a leaf primitive from a function.
func NewFunc(name string, fn ExecuteFunc) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Name() string { return f.name }
func (f *Func) Kind() Kind   { return KindFunc }

func (f *Func) Execute(ctx context.Context, wctx *flow.Context, input any) (any, error) {
	return f.fn(ctx, wctx, input)
}

// Predicate decides between the branches of a Conditional.
type Predicate func(wctx *flow.Context, input any) (bool, error)

// Selector derives a case or route name from the input for Switch and Router.
type Selector func(wctx *flow.Context, input any) (string, error)
