package primitive

import (
	"context"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/observability"
)

// Branch selection values recorded under flow.SlotSelectedBranch and
// flow.SlotSelectedCase.
const (
	BranchThen    = "then"
	BranchElse    = "else"
	BranchDefault = "default"
	// BranchPass marks a pass-through: no branch matched and no default was
	// configured, so the input flowed out unchanged.
	BranchPass = "pass"
)

// Conditional evaluates a predicate against the input and executes exactly
// one of two branches. The selected branch is recorded in the context's
// state under flow.SlotSelectedBranch so observers can see which path fired.
//
// A nil else-branch makes the false case a pass-through: the input is
// returned unchanged and no error is raised.
type Conditional struct {
	name string
	pred Predicate
	then Primitive
	els  Primitive
}

// NewConditional creates a two-way branch. then must be non-nil; els may be
// nil for pass-through on false.
func NewConditional(name string, pred Predicate, then, els Primitive) *Conditional {
	return &Conditional{name: name, pred: pred, then: then, els: els}
}

func (c *Conditional) Name() string { return c.name }
func (c *Conditional) Kind() Kind   { return KindConditional }

func (c *Conditional) Execute(ctx context.Context, wctx *flow.Context, input any) (any, error) {
	ok, err := c.pred(wctx, input)
	if err != nil {
		return nil, &RouteError{Primitive: c.name, Err: err}
	}

	selected := BranchPass
	var target Primitive
	switch {
	case ok:
		selected = BranchThen
		target = c.then
	case c.els != nil:
		selected = BranchElse
		target = c.els
	}

	wctx.Set(flow.SlotSelectedBranch, selected)
	wctx.Emit(ctx, observability.Event{
		Type:   EventConditionalSelect,
		Level:  observability.LevelVerbose,
		Source: c.name,
		Data:   map[string]any{"branch": selected},
	})

	if target == nil {
		return input, nil
	}
	return target.Execute(ctx, wctx, input)
}

// Switch evaluates a selector against the input and dispatches to the
// matching case, falling back to an optional default. The selected case name
// is recorded under flow.SlotSelectedCase. No match and no default is a
// no-op pass-through, not an error.
type Switch struct {
	name     string
	selector Selector
	cases    map[string]Primitive
	def      Primitive
}

// NewSwitch creates a multi-way branch. def may be nil for pass-through when
// no case matches.
func NewSwitch(name string, selector Selector, cases map[string]Primitive, def Primitive) *Switch {
	return &Switch{name: name, selector: selector, cases: cases, def: def}
}

func (s *Switch) Name() string { return s.name }
func (s *Switch) Kind() Kind   { return KindSwitch }

func (s *Switch) Execute(ctx context.Context, wctx *flow.Context, input any) (any, error) {
	key, err := s.selector(wctx, input)
	if err != nil {
		return nil, &RouteError{Primitive: s.name, Err: err}
	}

	selected := key
	target, found := s.cases[key]
	if !found {
		if s.def != nil {
			selected = BranchDefault
			target = s.def
		} else {
			selected = BranchPass
		}
	}

	wctx.Set(flow.SlotSelectedCase, selected)
	wctx.Emit(ctx, observability.Event{
		Type:   EventSwitchSelect,
		Level:  observability.LevelVerbose,
		Source: s.name,
		Data:   map[string]any{"key": key, "case": selected},
	})

	if target == nil {
		return input, nil
	}
	return target.Execute(ctx, wctx, input)
}
