package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/tailored-agentic-units/loom/flow"
	"github.com/tailored-agentic-units/loom/metrics"
	"github.com/tailored-agentic-units/loom/observability"
	"github.com/tailored-agentic-units/loom/primitive"
)

// Event types emitted by the cache wrapper.
const (
	EventHit    observability.EventType = "cache.hit"
	EventMiss   observability.EventType = "cache.miss"
	EventBadKey observability.EventType = "cache.key_error"
)

// Config tunes a Cache wrapper. The zero value is replaced by DefaultConfig,
// so no configuration is required to function.
type Config struct {
	// MaxEntries bounds the store; the least recently used entry is
	// evicted when the bound is exceeded.
	MaxEntries int `json:"max_entries" yaml:"max_entries"`

	// TTL is the per-entry time to live. Reads do not refresh it.
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// Cost is the typical cost of one wrapped execution. When positive,
	// each hit records this amount as savings on the metrics collector.
	Cost float64 `json:"cost" yaml:"cost"`
}

// DefaultConfig returns the default bounds: 1024 entries, 5 minute TTL.
func DefaultConfig() Config {
	return Config{
		MaxEntries: 1024,
		TTL:        5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxEntries <= 0 {
		c.MaxEntries = def.MaxEntries
	}
	if c.TTL <= 0 {
		c.TTL = def.TTL
	}
	return c
}

// KeyFunc derives a cache key from a primitive input.
type KeyFunc func(input any) (string, error)

// DefaultKey derives a structural key: the FNV-64a hash of the input's
// canonical JSON encoding. Inputs that encode equally share a key.
func DefaultKey(input any) (string, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("cache: derive key: %w", err)
	}
	h := fnv.New64a()
	h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// Cache wraps one primitive with a bounded LRU+TTL store.
//
// On a hit the stored value is returned without invoking the wrapped
// primitive; on a miss the wrapped primitive runs and its result is stored.
// Failures are never cached, and the wrapped primitive's errors propagate
// unchanged; the cache has no recovery semantics of its own.
//
// Concurrent requests for the same not-yet-resolved key are not
// deduplicated: each miss invokes the wrapped primitive independently.
type Cache struct {
	wrapped   primitive.Primitive
	cfg       Config
	keyFn     KeyFunc
	store     *store
	collector *metrics.Collector
}

// New wraps p with a cache using the given config. Zero-value config fields
// fall back to DefaultConfig.
func New(p primitive.Primitive, cfg Config) *Cache {
	cfg = cfg.withDefaults()
	return &Cache{
		wrapped: p,
		cfg:     cfg,
		keyFn:   DefaultKey,
		store:   newStore(cfg.MaxEntries),
	}
}

// WithKeyFunc replaces the structural default key derivation.
func (c *Cache) WithKeyFunc(fn KeyFunc) *Cache {
	c.keyFn = fn
	return c
}

// WithCollector enables savings accounting on hit against the given
// collector.
func (c *Cache) WithCollector(collector *metrics.Collector) *Cache {
	c.collector = collector
	return c
}

func (c *Cache) Name() string         { return c.wrapped.Name() + ".cache" }
func (c *Cache) Kind() primitive.Kind { return primitive.KindCache }

// Len reports the number of live entries in the store.
func (c *Cache) Len() int { return c.store.len() }

// Wrapped returns the underlying primitive.
func (c *Cache) Wrapped() primitive.Primitive { return c.wrapped }

func (c *Cache) Execute(ctx context.Context, wctx *flow.Context, input any) (any, error) {
	key, err := c.keyFn(input)
	if err != nil {
		// Unkeyable input: execute uncached rather than fail the call.
		wctx.Emit(ctx, observability.Event{
			Type:   EventBadKey,
			Level:  observability.LevelWarning,
			Source: c.wrapped.Name(),
			Data:   map[string]any{"error": err.Error()},
		})
		return c.wrapped.Execute(ctx, wctx, input)
	}

	if value, ok := c.store.get(key, time.Now()); ok {
		wctx.Emit(ctx, observability.Event{
			Type:   EventHit,
			Level:  observability.LevelVerbose,
			Source: c.wrapped.Name(),
			Data:   map[string]any{"key": key},
		})
		if c.collector != nil && c.cfg.Cost > 0 {
			c.collector.AddSavings(c.wrapped.Name(), c.cfg.Cost)
		}
		return value, nil
	}

	out, err := c.wrapped.Execute(ctx, wctx, input)
	if err != nil {
		return nil, err
	}

	c.store.set(key, out, c.cfg.TTL, time.Now())
	wctx.Emit(ctx, observability.Event{
		Type:   EventMiss,
		Level:  observability.LevelVerbose,
		Source: c.wrapped.Name(),
		Data:   map[string]any{"key": key},
	})
	return out, nil
}
