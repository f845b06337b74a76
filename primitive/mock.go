package primitive

import (
	"context"
	"sync"
	"time"

	"github.com/tailored-agentic-units/loom/flow"
)

// Mock is a scriptable test double implementing Primitive. It counts
// invocations, records inputs, and returns either a fixed result, a fixed
// error, or whatever a supplied function produces. Safe for concurrent use,
// so it can stand in for parallel branches.
type Mock struct {
	name string

	mu     sync.Mutex
	calls  int
	inputs []any

	result any
	err    error
	delay  time.Duration
	fn     ExecuteFunc
}

// NewMock creates a Mock that echoes its input by default.
func NewMock(name string) *Mock {
	return &Mock{name: name}
}

// WithResult makes the mock return value on every call.
func (m *Mock) WithResult(value any) *Mock {
	m.result = value
	return m
}

// WithError makes the mock fail with err on every call.
func (m *Mock) WithError(err error) *Mock {
	m.err = err
	return m
}

// WithDelay makes the mock sleep for d before returning, honoring context
// cancellation during the sleep.
func (m *Mock) WithDelay(d time.Duration) *Mock {
	m.delay = d
	return m
}

// WithFunc delegates each call to fn, overriding WithResult and WithError.
func (m *Mock) WithFunc(fn ExecuteFunc) *Mock {
	m.fn = fn
	return m
}

func (m *Mock) Name() string { return m.name }
func (m *Mock) Kind() Kind   { return KindMock }

// Calls returns how many times Execute has been invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Inputs returns a copy of the inputs seen so far, in call order.
func (m *Mock) Inputs() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.inputs))
	copy(out, m.inputs)
	return out
}

func (m *Mock) Execute(ctx context.Context, wctx *flow.Context, input any) (any, error) {
	m.mu.Lock()
	m.calls++
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}

	if m.fn != nil {
		return m.fn(ctx, wctx, input)
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return input, nil
}
