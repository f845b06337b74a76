package resilience

import "github.com/tailored-agentic-units/loom/observability"

// Event types emitted by recovery primitives.
const (
	EventRetryAttempt   observability.EventType = "retry.attempt"
	EventRetryRecovered observability.EventType = "retry.recovered"
	EventRetryExhausted observability.EventType = "retry.exhausted"

	EventFallbackFailover  observability.EventType = "fallback.failover"
	EventFallbackRecovered observability.EventType = "fallback.recovered"
	EventFallbackExhausted observability.EventType = "fallback.exhausted"

	EventTimeoutExceeded observability.EventType = "timeout.exceeded"

	EventBreakerOpen     observability.EventType = "breaker.open"
	EventBreakerHalfOpen observability.EventType = "breaker.halfopen"
	EventBreakerClose    observability.EventType = "breaker.close"
	EventBreakerRejected observability.EventType = "breaker.rejected"

	EventSagaStepComplete      observability.EventType = "saga.step.complete"
	EventSagaCompensating      observability.EventType = "saga.compensating"
	EventSagaCompensationError observability.EventType = "saga.compensation.error"
)
