package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config holds application configuration.
type Config struct {
	// ServiceEndpoint is the URL of the remote simplification service.
	ServiceEndpoint string `json:"service_endpoint"`

	// Mode is the default simplification mode: "easy" (Einfache Sprache)
	// or "light" (Leichte Sprache). Commands may override it per run.
	Mode string `json:"mode"`

	// MaxOutputChars caps the simplified text length requested per unit.
	MaxOutputChars int `json:"max_output_chars"`

	// BatchSize is the number of units dispatched concurrently per batch.
	// Batch N+1 does not start until batch N has fully resolved.
	BatchSize int `json:"batch_size"`

	// MinUnitChars is the minimum trimmed length for a text fragment to
	// qualify for simplification. Shorter fragments are skipped: network
	// overhead dominates and the language heuristic is unreliable on them.
	MinUnitChars int `json:"min_unit_chars"`

	// CacheCeiling is the durable-tier entry count that triggers eviction.
	CacheCeiling int `json:"cache_ceiling"`

	// CacheWatermark is the durable-tier size eviction reduces to.
	// Must be below CacheCeiling so eviction does not run on every set.
	CacheWatermark int `json:"cache_watermark"`

	// TransientCapacity is the in-process LRU tier capacity.
	TransientCapacity int `json:"transient_capacity"`

	// EvictIntervalSecs is the period of the background eviction sweep
	// in long-lived modes. 0 disables the sweep.
	EvictIntervalSecs int `json:"evict_interval_secs,omitempty"`

	// HTTPTimeoutSecs bounds each remote service call.
	HTTPTimeoutSecs int `json:"http_timeout_secs"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ServiceEndpoint:   "http://localhost:8000/v1/simplify",
		Mode:              "easy",
		MaxOutputChars:    2000,
		BatchSize:         5,
		MinUnitChars:      15,
		CacheCeiling:      1000,
		CacheWatermark:    500,
		TransientCapacity: 128,
		EvictIntervalSecs: 300,
		HTTPTimeoutSecs:   30,
	}
}

// ValidModes lists the simplification modes the service accepts.
var ValidModes = []string{"easy", "light"}

// ValidMode reports whether mode is one of the accepted simplification modes.
func ValidMode(mode string) bool {
	for _, m := range ValidModes {
		if mode == m {
			return true
		}
	}
	return false
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.klartext.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if !ValidMode(merged.Mode) {
		return nil, errors.New("config: mode must be one of: easy, light")
	}
	if merged.CacheWatermark >= merged.CacheCeiling {
		return nil, errors.New("config: cache_watermark must be below cache_ceiling")
	}
	return merged, nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for non-zero scalars.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.ServiceEndpoint = pickString(base.ServiceEndpoint, overlay.ServiceEndpoint)
	result.Mode = pickString(base.Mode, overlay.Mode)
	result.MaxOutputChars = pickInt(base.MaxOutputChars, overlay.MaxOutputChars)
	result.BatchSize = pickInt(base.BatchSize, overlay.BatchSize)
	result.MinUnitChars = pickInt(base.MinUnitChars, overlay.MinUnitChars)
	result.CacheCeiling = pickInt(base.CacheCeiling, overlay.CacheCeiling)
	result.CacheWatermark = pickInt(base.CacheWatermark, overlay.CacheWatermark)
	result.TransientCapacity = pickInt(base.TransientCapacity, overlay.TransientCapacity)
	result.EvictIntervalSecs = pickInt(base.EvictIntervalSecs, overlay.EvictIntervalSecs)
	result.HTTPTimeoutSecs = pickInt(base.HTTPTimeoutSecs, overlay.HTTPTimeoutSecs)
	result.DBMaxOpenConns = pickInt(base.DBMaxOpenConns, overlay.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(base.DBMaxIdleConns, overlay.DBMaxIdleConns)

	return result
}

func pickString(base, overlay string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func pickInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}
