// Package flow provides the per-invocation workflow context threaded through
// every composed primitive during execution.
//
// A Context carries W3C Trace Context-compatible identifiers, a correlation ID
// stable across the whole logical request, propagated baggage, local tags, an
// append-only checkpoint sequence for elapsed-time breakdowns, and a small
// state side-channel primitives use to signal decisions (which branch fired,
// how many retry attempts were consumed) to observers and to each other.
//
// Sequential composition threads one Context through every step so checkpoints
// and state accumulate visibly. Parallel composition gives each branch a child
// Context via Child: the child shares trace identity, correlation ID, baggage,
// and observer with its parent but owns fresh checkpoint and state storage, so
// sibling branches never observe each other's writes.
package flow

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/loom/observability"
	"github.com/tailored-agentic-units/loom/trace"
)

// Well-known state slot keys. Primitives record execution decisions under
// these keys instead of inventing ad-hoc ones, keeping the cross-primitive
// side-channel auditable.
const (
	// SlotSelectedBranch records "then" or "else" after conditional execution.
	SlotSelectedBranch = "selected_branch"
	// SlotSelectedCase records the matched case name after switch execution.
	SlotSelectedCase = "selected_case"
	// SlotSelectedRoute records the route name after router delegation.
	SlotSelectedRoute = "selected_route"
	// SlotRetryAttempts records how many attempts a retry wrapper consumed.
	SlotRetryAttempts = "retry_attempts"
	// SlotFallbackIndex records which alternate ultimately served a fallback.
	SlotFallbackIndex = "fallback_index"
)

// Checkpoint is a named marker recording elapsed time since context creation.
type Checkpoint struct {
	Name    string        `json:"name"`
	Elapsed time.Duration `json:"elapsed"`
}

// Context is the per-invocation record threaded through an execution tree.
//
// The trace identity fields are written once at creation (or when a wrapper
// advances the span) and read freely afterwards; the mutable collections are
// guarded by an internal mutex so a Context is safe to share between a
// primitive and the observers it notifies. Isolation between parallel
// branches comes from Child, not from locking: sibling branches must never
// share one Context.
type Context struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	TraceFlags   byte

	// CorrelationID is stable across the whole logical request.
	CorrelationID string
	// CausationID optionally links this invocation to the event causing it.
	CausationID string

	// Observer receives lifecycle events from every primitive this context
	// passes through. Defaults to NoOpObserver.
	Observer observability.Observer

	start time.Time

	mu          sync.Mutex
	baggage     map[string]string
	tags        map[string]string
	checkpoints []Checkpoint
	state       map[string]any
}

// New creates a root Context with fresh trace identity, a newly generated
// correlation ID, and the sampled trace flag set.
func New() *Context {
	return &Context{
		TraceID:       trace.NewTraceID(),
		SpanID:        trace.NewSpanID(),
		TraceFlags:    trace.FlagSampled,
		CorrelationID: uuid.New().String(),
		Observer:      observability.NoOpObserver{},
		start:         time.Now(),
		baggage:       make(map[string]string),
		tags:          make(map[string]string),
		state:         make(map[string]any),
	}
}

// FromTraceparent creates a root Context continuing an inbound trace. The
// incoming span becomes the parent of this context's span, preserving
// linkage across process boundaries.
func FromTraceparent(header string) (*Context, error) {
	traceID, spanID, flags, err := trace.ParseTraceparent(header)
	if err != nil {
		return nil, err
	}
	c := New()
	c.TraceID = traceID
	c.ParentSpanID = spanID
	c.TraceFlags = flags
	return c, nil
}

// WithObserver sets the context's observer and returns the context for
// chaining during construction.
func (c *Context) WithObserver(obs observability.Observer) *Context {
	if obs == nil {
		obs = observability.NoOpObserver{}
	}
	c.Observer = obs
	return c
}

// WithCausation sets the causation ID and returns the context for chaining.
func (c *Context) WithCausation(id string) *Context {
	c.CausationID = id
	return c
}

// Child creates a context for a parallel branch or nested scope.
//
// The child copies trace ID, correlation ID, causation ID, trace flags,
// baggage, and observer from the parent; gets a fresh span ID with
// ParentSpanID set to the parent's span; and owns empty checkpoint and state
// storage. Writes to the child are never visible to the parent or to sibling
// children.
func (c *Context) Child() *Context {
	c.mu.Lock()
	baggage := maps.Clone(c.baggage)
	c.mu.Unlock()

	return &Context{
		TraceID:       c.TraceID,
		SpanID:        trace.NewSpanID(),
		ParentSpanID:  c.SpanID,
		TraceFlags:    c.TraceFlags,
		CorrelationID: c.CorrelationID,
		CausationID:   c.CausationID,
		Observer:      c.Observer,
		start:         time.Now(),
		baggage:       baggage,
		tags:          make(map[string]string),
		state:         make(map[string]any),
	}
}

// AdvanceSpan gives the context a fresh span ID, linking the previous span as
// parent, and returns the new span ID. Instrumentation wrappers call this on
// entry so nested spans chain correctly within one context.
func (c *Context) AdvanceSpan() string {
	c.ParentSpanID = c.SpanID
	c.SpanID = trace.NewSpanID()
	return c.SpanID
}

// Traceparent returns the context's identity as a W3C traceparent value.
func (c *Context) Traceparent() string {
	return trace.Traceparent(c.TraceID, c.SpanID, c.TraceFlags)
}

// Elapsed returns the time since context creation, from the monotonic clock.
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.start)
}

// Checkpoint appends a named checkpoint recording the elapsed time since
// context creation. Checkpoints are append-only.
func (c *Context) Checkpoint(name string) {
	elapsed := c.Elapsed()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkpoints = append(c.checkpoints, Checkpoint{Name: name, Elapsed: elapsed})
}

// Checkpoints returns a defensive copy of the checkpoint sequence in
// recording order.
func (c *Context) Checkpoints() []Checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Checkpoint, len(c.checkpoints))
	copy(out, c.checkpoints)
	return out
}

// Set stores a value in the context's state side-channel.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state[key] = value
}

// Get retrieves a state value. Returns the value and true if the key exists.
func (c *Context) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, exists := c.state[key]
	return val, exists
}

// State returns a snapshot copy of the state side-channel.
func (c *Context) State() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.state)
}

// SetBaggage stores a baggage item propagated to all descendant contexts.
func (c *Context) SetBaggage(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baggage[key] = value
}

// Baggage retrieves a baggage item.
func (c *Context) Baggage(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, exists := c.baggage[key]
	return val, exists
}

// BaggageItems returns a snapshot copy of all baggage.
func (c *Context) BaggageItems() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.baggage)
}

// SetTag stores a local annotation. Tags are not propagated to children.
func (c *Context) SetTag(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[key] = value
}

// Tags returns a snapshot copy of the context's tags.
func (c *Context) Tags() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.tags)
}

// Emit sends an event to the context's observer, filling in the timestamp and
// trace identity when the caller left them empty.
func (c *Context) Emit(ctx context.Context, event observability.Event) {
	if c.Observer == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.TraceID == "" {
		event.TraceID = c.TraceID
		event.SpanID = c.SpanID
	}
	c.Observer.OnEvent(ctx, event)
}
