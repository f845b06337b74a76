package primitive

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidInput marks input validation failures: the input failed a
// precondition before any side effect occurred. Recovery wrappers treat
// errors matching this sentinel as non-retryable.
var ErrInvalidInput = errors.New("invalid input")

// ErrUnknownRoute is returned by Router when the selected route does not
// exist and no default route is configured.
var ErrUnknownRoute = errors.New("unknown route")

// BranchError captures the failure of a single parallel branch, preserving
// the branch's declaration-order index and name.
type BranchError struct {
	// Index is the 0-based position of the branch in declaration order.
	Index int

	// Branch is the failing branch primitive's name.
	Branch string

	// Err is the underlying error returned by the branch.
	Err error
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("branch %d (%s): %v", e.Index, e.Branch, e.Err)
}

func (e *BranchError) Unwrap() error {
	return e.Err
}

// ParallelError aggregates every branch failure from one parallel execution.
//
// It is raised only after all branches have reached a terminal state, so a
// failing branch never masks a sibling still in flight. Every underlying
// error is retained, in declaration order, and reachable through Go 1.20+
// multi-error unwrapping (errors.Is / errors.As search all of them).
type ParallelError struct {
	// Primitive is the parallel primitive's name.
	Primitive string

	// Branches is the total number of branches launched.
	Branches int

	// Errors holds one entry per failed branch, ordered by branch index.
	Errors []*BranchError
}

// Error returns a summary of the failed branches. Single failures are
// reported in full; multiple failures are grouped by error message with
// counts, most frequent first.
func (e *ParallelError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("parallel %s failed", e.Primitive)
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("parallel %s failed: %v", e.Primitive, e.Errors[0])
	}

	counts := make(map[string]int)
	for _, be := range e.Errors {
		counts[be.Err.Error()]++
	}
	type summary struct {
		msg   string
		count int
	}
	summaries := make([]summary, 0, len(counts))
	for msg, count := range counts {
		summaries = append(summaries, summary{msg, count})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].count != summaries[j].count {
			return summaries[i].count > summaries[j].count
		}
		return summaries[i].msg < summaries[j].msg
	})

	parts := make([]string, 0, len(summaries))
	for _, s := range summaries {
		parts = append(parts, fmt.Sprintf("'%s' (%d)", s.msg, s.count))
	}
	return fmt.Sprintf("parallel %s failed: %d of %d branches failed: %s",
		e.Primitive, len(e.Errors), e.Branches, strings.Join(parts, ", "))
}

// Unwrap returns all underlying branch errors for multi-error unwrapping.
func (e *ParallelError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, be := range e.Errors {
		errs[i] = be.Err
	}
	return errs
}

// RouteError reports a failure in predicate or selector evaluation for
// Conditional, Switch, and Router primitives.
type RouteError struct {
	// Primitive is the selecting primitive's name.
	Primitive string

	// Route is the selected route or case, when selection got that far.
	Route string

	// Err is the underlying failure.
	Err error
}

func (e *RouteError) Error() string {
	if e.Route == "" {
		return fmt.Sprintf("%s: selection failed: %v", e.Primitive, e.Err)
	}
	return fmt.Sprintf("%s: route %q: %v", e.Primitive, e.Route, e.Err)
}

func (e *RouteError) Unwrap() error {
	return e.Err
}
