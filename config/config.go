// Package config holds initialization parameters for the engine's
// subsystems. Files may be YAML or JSON; loaded values are merged over
// defaults so partial files only override what they name.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/loom/cache"
	"github.com/tailored-agentic-units/loom/memory"
	"github.com/tailored-agentic-units/loom/metrics"
	"github.com/tailored-agentic-units/loom/observability"
	"github.com/tailored-agentic-units/loom/resilience"
)

const defaultMetricsAddr = ":9090"

// Config holds initialization parameters for all engine subsystems.
type Config struct {
	Retry       resilience.Policy        `json:"retry" yaml:"retry"`
	Timeout     time.Duration            `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Breaker     resilience.BreakerConfig `json:"breaker" yaml:"breaker"`
	Cache       cache.Config             `json:"cache" yaml:"cache"`
	Memory      memory.Config            `json:"memory" yaml:"memory"`
	SLO         metrics.SLOConfig        `json:"slo" yaml:"slo"`
	Observer    string                   `json:"observer,omitempty" yaml:"observer,omitempty"`
	MetricsAddr string                   `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults for all
// subsystems.
func DefaultConfig() Config {
	return Config{
		Retry:       *resilience.DefaultPolicy(),
		Timeout:     30 * time.Second,
		Breaker:     resilience.DefaultBreakerConfig(),
		Cache:       cache.DefaultConfig(),
		Memory:      memory.DefaultConfig(),
		SLO:         metrics.DefaultSLOConfig(),
		Observer:    "slog",
		MetricsAddr: defaultMetricsAddr,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's merge where one exists.
func (c *Config) Merge(source *Config) {
	mergeRetry(&c.Retry, &source.Retry)
	mergeBreaker(&c.Breaker, &source.Breaker)
	mergeCache(&c.Cache, &source.Cache)
	c.Memory.Merge(&source.Memory)
	mergeSLO(&c.SLO, &source.SLO)

	if source.Timeout > 0 {
		c.Timeout = source.Timeout
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.MetricsAddr != "" {
		c.MetricsAddr = source.MetricsAddr
	}
}

// NewObserver resolves the configured observer name against the
// observability registry.
func (c *Config) NewObserver() (observability.Observer, error) {
	return observability.GetObserver(c.Observer)
}

// Load reads a config file, merges it with defaults, and returns the
// resulting Config. Files ending in .yaml or .yml are parsed as YAML,
// anything else as JSON.
func Load(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch ext := filepath.Ext(filename); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	default:
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

func mergeRetry(dst, src *resilience.Policy) {
	if src.MaxAttempts > 0 {
		dst.MaxAttempts = src.MaxAttempts
	}
	if src.InitialDelay > 0 {
		dst.InitialDelay = src.InitialDelay
	}
	if src.MaxDelay > 0 {
		dst.MaxDelay = src.MaxDelay
	}
	if src.Multiplier > 0 {
		dst.Multiplier = src.Multiplier
	}
	if src.Jitter > 0 {
		dst.Jitter = src.Jitter
	}
	if src.Strategy != "" {
		dst.Strategy = src.Strategy
	}
}

func mergeBreaker(dst, src *resilience.BreakerConfig) {
	if src.FailureThreshold > 0 {
		dst.FailureThreshold = src.FailureThreshold
	}
	if src.Window > 0 {
		dst.Window = src.Window
	}
	if src.Cooldown > 0 {
		dst.Cooldown = src.Cooldown
	}
}

func mergeCache(dst, src *cache.Config) {
	if src.MaxEntries > 0 {
		dst.MaxEntries = src.MaxEntries
	}
	if src.TTL > 0 {
		dst.TTL = src.TTL
	}
	if src.Cost > 0 {
		dst.Cost = src.Cost
	}
}

func mergeSLO(dst, src *metrics.SLOConfig) {
	if src.TargetAvailability > 0 {
		dst.TargetAvailability = src.TargetAvailability
	}
	if src.LatencyThreshold > 0 {
		dst.LatencyThreshold = src.LatencyThreshold
	}
	if src.TargetLatencyRate > 0 {
		dst.TargetLatencyRate = src.TargetLatencyRate
	}
}
