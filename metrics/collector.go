package metrics

import (
	"sync"
	"time"
)

// Collector owns the per-primitive-name metric records for one process.
//
// Records are created lazily on first use, guarded so concurrent tasks
// racing on first execution of the same name initialize exactly one Record;
// after that, all mutation is append/increment-only per name with no
// cross-name locking.
//
// A process-wide default collector is available through Default, but
// constructing one explicitly and passing it to instrument wrappers keeps
// initialization ordering and test isolation explicit.
type Collector struct {
	mu       sync.RWMutex
	records  map[string]*Record
	defaults SLOConfig
}

// NewCollector creates an empty Collector with DefaultSLOConfig objectives.
func NewCollector() *Collector {
	return &Collector{
		records:  make(map[string]*Record),
		defaults: DefaultSLOConfig(),
	}
}

var (
	defaultCollector *Collector
	defaultOnce      sync.Once
)

// Default returns the process-wide collector, creating it on first use.
func Default() *Collector {
	defaultOnce.Do(func() {
		defaultCollector = NewCollector()
	})
	return defaultCollector
}

// record returns the Record for name, creating it on first use. The
// fast path takes only a read lock.
func (c *Collector) record(name string) *Record {
	c.mu.RLock()
	rec, ok := c.records[name]
	c.mu.RUnlock()
	if ok {
		return rec
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok = c.records[name]; ok {
		return rec
	}
	rec = newRecord(name, c.defaults)
	c.records[name] = rec
	return rec
}

// SetSLO configures the objectives for a primitive name. Must be called
// before the name's first execution to take effect from the first sample;
// later calls replace the objectives but keep accumulated counters.
func (c *Collector) SetSLO(name string, cfg SLOConfig) {
	rec := c.record(name)
	rec.mu.Lock()
	rec.slo = cfg.withDefaults()
	rec.mu.Unlock()
}

// SetDefaultSLO sets the objectives applied to records created after this
// call.
func (c *Collector) SetDefaultSLO(cfg SLOConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaults = cfg.withDefaults()
}

// Begin marks the start of an execution, incrementing the primitive's
// active-request gauge.
func (c *Collector) Begin(name string) {
	c.record(name).addActive(1)
}

// End records one finished execution: outcome, elapsed time, and optional
// cost. It decrements the active-request gauge incremented by Begin.
func (c *Collector) End(name string, elapsed time.Duration, failed bool, cost float64) {
	rec := c.record(name)
	rec.addActive(-1)
	rec.observe(elapsed, failed, cost)
}

// Observe records one execution sample without active-request tracking.
func (c *Collector) Observe(name string, elapsed time.Duration, failed bool, cost float64) {
	c.record(name).observe(elapsed, failed, cost)
}

// AddSavings accumulates avoided cost for a primitive, typically recorded on
// a cache hit standing in for a billed call.
func (c *Collector) AddSavings(name string, amount float64) {
	c.record(name).addSavings(amount)
}

// Snapshot returns the current view of one primitive's metrics. The second
// return is false when the name has never executed.
func (c *Collector) Snapshot(name string) (Snapshot, bool) {
	c.mu.RLock()
	rec, ok := c.records[name]
	c.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return rec.snapshot(), true
}

// Snapshots returns current views of every known primitive, keyed by name.
func (c *Collector) Snapshots() map[string]Snapshot {
	c.mu.RLock()
	recs := make([]*Record, 0, len(c.records))
	for _, rec := range c.records {
		recs = append(recs, rec)
	}
	c.mu.RUnlock()

	out := make(map[string]Snapshot, len(recs))
	for _, rec := range recs {
		snap := rec.snapshot()
		out[snap.Name] = snap
	}
	return out
}
