package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/loom/config"
	"github.com/tailored-agentic-units/loom/memory"
	"github.com/tailored-agentic-units/loom/resilience"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, resilience.BackoffExponential, cfg.Retry.Strategy)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 1024, cfg.Cache.MaxEntries)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, memory.BackendMemory, cfg.Memory.Backend)
	assert.Equal(t, 0.99, cfg.SLO.TargetAvailability)
	assert.Equal(t, "slog", cfg.Observer)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestConfig_MergeOverridesOnlyNamedValues(t *testing.T) {
	cfg := config.DefaultConfig()
	src := config.Config{
		Retry:    resilience.Policy{MaxAttempts: 5},
		Observer: "noop",
		Memory:   memory.Config{Backend: memory.BackendFile, Path: "/tmp/sessions"},
	}

	cfg.Merge(&src)

	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	// Unnamed fields keep their defaults.
	assert.Equal(t, 1*time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, resilience.BackoffExponential, cfg.Retry.Strategy)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "noop", cfg.Observer)
	assert.Equal(t, memory.BackendFile, cfg.Memory.Backend)
	assert.Equal(t, "/tmp/sessions", cfg.Memory.Path)
	assert.Equal(t, memory.DefaultMaxRecords, cfg.Memory.MaxRecords)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestConfig_MergeZeroSourceKeepsDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Merge(&config.Config{})
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	content := `
retry:
  max_attempts: 7
  strategy: linear
breaker:
  failure_threshold: 2
memory:
  backend: sqlite
  path: /var/lib/loom/memory.db
observer: noop
metrics_addr: ":2112"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, resilience.BackoffLinear, cfg.Retry.Strategy)
	assert.Equal(t, 2, cfg.Breaker.FailureThreshold)
	assert.Equal(t, memory.BackendSQLite, cfg.Memory.Backend)
	assert.Equal(t, "/var/lib/loom/memory.db", cfg.Memory.Path)
	assert.Equal(t, "noop", cfg.Observer)
	assert.Equal(t, ":2112", cfg.MetricsAddr)
	// Defaults survive for everything the file does not name.
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 0.99, cfg.SLO.TargetAvailability)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.json")
	content := `{
  "retry": {"max_attempts": 2},
  "cache": {"max_entries": 64},
  "observer": "noop"
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Retry.MaxAttempts)
	assert.Equal(t, 64, cfg.Cache.MaxEntries)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "noop", cfg.Observer)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry: [not: a: map"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestConfig_NewObserver(t *testing.T) {
	cfg := config.DefaultConfig()
	obs, err := cfg.NewObserver()
	require.NoError(t, err)
	assert.NotNil(t, obs)

	cfg.Observer = "nonexistent"
	_, err = cfg.NewObserver()
	assert.Error(t, err)
}
