// Package metrics collects per-primitive execution metrics: outcome
// counters, a bounded rolling latency window for percentile computation, SLO
// compliance, throughput over a trailing window, and cost/savings
// accounting. A Prometheus bridge exposes everything in the standard text
// exposition format for pull-based scrapers.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Window capacities. Records are monotonically appended to; once a window
// fills, the oldest samples are overwritten in ring-buffer fashion.
const (
	// LatencyWindowSize bounds the rolling sample window used for
	// percentile computation.
	LatencyWindowSize = 10_000

	// ThroughputWindowSize bounds the recorded execution timestamps.
	ThroughputWindowSize = 1_000

	// ThroughputInterval is the trailing window over which
	// requests-per-second is computed.
	ThroughputInterval = 60 * time.Second
)

// SLOConfig sets the objectives a primitive is measured against. The zero
// value is replaced by DefaultSLOConfig, so primitives need no configuration
// to be measured.
type SLOConfig struct {
	// TargetAvailability is the required fraction of successful executions.
	TargetAvailability float64 `json:"target_availability" yaml:"target_availability"`

	// LatencyThreshold is the per-request latency bound counted toward
	// latency compliance.
	LatencyThreshold time.Duration `json:"latency_threshold" yaml:"latency_threshold"`

	// TargetLatencyRate is the required fraction of requests completing
	// under LatencyThreshold.
	TargetLatencyRate float64 `json:"target_latency_rate" yaml:"target_latency_rate"`
}

// DefaultSLOConfig returns the default objectives: 99% availability and 95%
// of requests under one second.
func DefaultSLOConfig() SLOConfig {
	return SLOConfig{
		TargetAvailability: 0.99,
		LatencyThreshold:   time.Second,
		TargetLatencyRate:  0.95,
	}
}

func (c SLOConfig) withDefaults() SLOConfig {
	def := DefaultSLOConfig()
	if c.TargetAvailability <= 0 {
		c.TargetAvailability = def.TargetAvailability
	}
	if c.LatencyThreshold <= 0 {
		c.LatencyThreshold = def.LatencyThreshold
	}
	if c.TargetLatencyRate <= 0 {
		c.TargetLatencyRate = def.TargetLatencyRate
	}
	return c
}

// Record is the per-primitive-name metric aggregate. It is created lazily on
// first execution, lives for the process lifetime, and is only ever appended
// to, never rolled back.
type Record struct {
	mu sync.Mutex

	name string
	slo  SLOConfig

	successes uint64
	failures  uint64
	underSLO  uint64 // executions completing under slo.LatencyThreshold

	latencies []time.Duration // ring buffer, capacity LatencyWindowSize
	latNext   int
	latFull   bool

	timestamps []time.Time // ring buffer, capacity ThroughputWindowSize
	tsNext     int
	tsFull     bool

	active int64

	cost    float64
	savings float64
}

func newRecord(name string, slo SLOConfig) *Record {
	return &Record{
		name:       name,
		slo:        slo.withDefaults(),
		latencies:  make([]time.Duration, 0, LatencyWindowSize),
		timestamps: make([]time.Time, 0, ThroughputWindowSize),
	}
}

func (r *Record) observe(elapsed time.Duration, failed bool, cost float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if failed {
		r.failures++
	} else {
		r.successes++
	}
	if elapsed < r.slo.LatencyThreshold {
		r.underSLO++
	}
	r.cost += cost

	if len(r.latencies) < LatencyWindowSize {
		r.latencies = append(r.latencies, elapsed)
	} else {
		r.latencies[r.latNext] = elapsed
		r.latFull = true
	}
	r.latNext = (r.latNext + 1) % LatencyWindowSize

	now := time.Now()
	if len(r.timestamps) < ThroughputWindowSize {
		r.timestamps = append(r.timestamps, now)
	} else {
		r.timestamps[r.tsNext] = now
		r.tsFull = true
	}
	r.tsNext = (r.tsNext + 1) % ThroughputWindowSize
}

func (r *Record) addSavings(amount float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.savings += amount
}

func (r *Record) addActive(delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active += delta
}

// percentile computes the nearest-rank percentile over sorted: the value at
// rank ceil(p/100 * n). Nearest-rank is used throughout (rather than
// interpolation) so the same sample set always yields the same result.
func percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}

// Snapshot is an immutable view of a Record at a point in time.
type Snapshot struct {
	Name string

	Total     uint64
	Successes uint64
	Failures  uint64
	Active    int64

	P50 time.Duration
	P90 time.Duration
	P95 time.Duration
	P99 time.Duration

	// Availability is successes/total.
	Availability float64
	// LatencyRate is the fraction of executions under the SLO latency
	// threshold.
	LatencyRate float64
	// Compliant requires both availability and latency rate to meet their
	// targets.
	Compliant bool
	// ErrorBudgetRemaining is max(0, 1-(1-availability)/(1-target)).
	ErrorBudgetRemaining float64

	// Throughput is requests per second over the trailing minute.
	Throughput float64

	Cost    float64
	Savings float64
	// SavingsRate is savings/(cost+savings), 0 when nothing was recorded.
	SavingsRate float64

	SLO SLOConfig
}

func (r *Record) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Name:      r.name,
		Successes: r.successes,
		Failures:  r.failures,
		Total:     r.successes + r.failures,
		Active:    r.active,
		Cost:      r.cost,
		Savings:   r.savings,
		SLO:       r.slo,
	}

	if len(r.latencies) > 0 {
		sorted := make([]time.Duration, len(r.latencies))
		copy(sorted, r.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		snap.P50 = percentile(sorted, 50)
		snap.P90 = percentile(sorted, 90)
		snap.P95 = percentile(sorted, 95)
		snap.P99 = percentile(sorted, 99)
	}

	if snap.Total > 0 {
		snap.Availability = float64(r.successes) / float64(snap.Total)
		snap.LatencyRate = float64(r.underSLO) / float64(snap.Total)
		snap.Compliant = snap.Availability >= r.slo.TargetAvailability &&
			snap.LatencyRate >= r.slo.TargetLatencyRate

		if r.slo.TargetAvailability >= 1 {
			if r.failures == 0 {
				snap.ErrorBudgetRemaining = 1
			}
		} else {
			budget := 1 - (1-snap.Availability)/(1-r.slo.TargetAvailability)
			snap.ErrorBudgetRemaining = math.Max(0, budget)
		}
	}

	cutoff := time.Now().Add(-ThroughputInterval)
	recent := 0
	for _, ts := range r.timestamps {
		if ts.After(cutoff) {
			recent++
		}
	}
	snap.Throughput = float64(recent) / ThroughputInterval.Seconds()

	if total := r.cost + r.savings; total > 0 {
		snap.SavingsRate = r.savings / total
	}

	return snap
}
