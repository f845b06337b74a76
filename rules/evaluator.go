// Package rules evaluates expr-lang expressions against workflow inputs,
// letting Conditional, Switch, and Router selections be driven by
// configuration instead of Go code.
//
// Expressions see two variables: "input" (the primitive's input value) and
// "state" (a snapshot of the workflow context's state side-channel).
package rules

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/primitive"
)

// Evaluator compiles and caches expr programs keyed by expression text.
// Compilation happens once per expression; evaluation reuses the compiled
// program. Safe for concurrent use.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewEvaluator creates an Evaluator with an empty program cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]*vm.Program)}
}

// Eval runs the expression against the given environment and returns the raw
// result.
func (e *Evaluator) Eval(expression string, env map[string]any) (any, error) {
	e.mu.RLock()
	program, ok := e.cache[expression]
	e.mu.RUnlock()

	if !ok {
		e.mu.Lock()
		if program, ok = e.cache[expression]; !ok {
			var err error
			program, err = expr.Compile(expression)
			if err != nil {
				e.mu.Unlock()
				return nil, fmt.Errorf("rules: compile %q: %w", expression, err)
			}
			e.cache[expression] = program
		}
		e.mu.Unlock()
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("rules: run %q: %w", expression, err)
	}
	return result, nil
}

// EvalBool runs the expression and requires a boolean result.
func (e *Evaluator) EvalBool(expression string, env map[string]any) (bool, error) {
	result, err := e.Eval(expression, env)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("rules: expression %q evaluated to %T, want bool", expression, result)
	}
	return b, nil
}

// EvalString runs the expression and requires a string result.
func (e *Evaluator) EvalString(expression string, env map[string]any) (string, error) {
	result, err := e.Eval(expression, env)
	if err != nil {
		return "", err
	}
	s, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("rules: expression %q evaluated to %T, want string", expression, result)
	}
	return s, nil
}

func environment(wctx *flow.Context, input any) map[string]any {
	return map[string]any{
		"input": input,
		"state": wctx.State(),
	}
}

// Predicate builds a primitive.Predicate from a boolean expression.
func (e *Evaluator) Predicate(expression string) primitive.Predicate {
	return func(wctx *flow.Context, input any) (bool, error) {
		return e.EvalBool(expression, environment(wctx, input))
	}
}

// Selector builds a primitive.Selector from a string expression.
func (e *Evaluator) Selector(expression string) primitive.Selector {
	return func(wctx *flow.Context, input any) (string, error) {
		return e.EvalString(expression, environment(wctx, input))
	}
}
