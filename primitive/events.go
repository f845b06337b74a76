package primitive

import "github.com/tailored-agentic-units/loom/observability"

// Event types emitted by control-flow primitives.
const (
	// Sequential chains
	EventSequentialStart    observability.EventType = "sequential.start"
	EventSequentialComplete observability.EventType = "sequential.complete"
	EventStepStart          observability.EventType = "sequential.step.start"
	EventStepComplete       observability.EventType = "sequential.step.complete"

	// Parallel fan-out
	EventParallelStart    observability.EventType = "parallel.start"
	EventParallelComplete observability.EventType = "parallel.complete"
	EventBranchStart      observability.EventType = "parallel.branch.start"
	EventBranchComplete   observability.EventType = "parallel.branch.complete"

	// Selection primitives
	EventConditionalSelect observability.EventType = "conditional.select"
	EventSwitchSelect      observability.EventType = "switch.select"
	EventRouteSelect       observability.EventType = "router.select"
	EventRouteExecute      observability.EventType = "router.execute"
)
