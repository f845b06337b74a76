package memory

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// Supported backend names.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds memory store initialization parameters.
type Config struct {
	Backend    string `json:"backend,omitempty" yaml:"backend,omitempty"`         // memory, file, sqlite, or redis
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`               // file root or sqlite database path
	Addr       string `json:"addr,omitempty" yaml:"addr,omitempty"`               // redis address
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`       // redis password
	DB         int    `json:"db,omitempty" yaml:"db,omitempty"`                   // redis database number
	MaxRecords int    `json:"max_records,omitempty" yaml:"max_records,omitempty"` // per-session capacity
}

// DefaultConfig returns the default memory configuration: an in-process
// store bounded at DefaultMaxRecords per session.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendMemory,
		MaxRecords: DefaultMaxRecords,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Backend != "" {
		c.Backend = source.Backend
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.Password != "" {
		c.Password = source.Password
	}
	if source.DB != 0 {
		c.DB = source.DB
	}
	if source.MaxRecords != 0 {
		c.MaxRecords = source.MaxRecords
	}
}

// NewStore creates a Store from configuration.
func NewStore(cfg *Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemStore(cfg.MaxRecords), nil
	case BackendFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file backend requires a path")
		}
		return NewFileStore(cfg.Path, cfg.MaxRecords), nil
	case BackendSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite backend requires a path")
		}
		db, err := sql.Open("sqlite", cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		return NewSQLiteStore(db, cfg.MaxRecords)
	case BackendRedis:
		if cfg.Addr == "" {
			return nil, fmt.Errorf("redis backend requires an address")
		}
		return NewRedisStore(RedisOptions{
			Addr:       cfg.Addr,
			Password:   cfg.Password,
			DB:         cfg.DB,
			MaxRecords: cfg.MaxRecords,
		})
	default:
		return nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
	}
}
