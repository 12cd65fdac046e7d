// Package config provides configuration management for depview.
// It supports multi-layer configuration with precedence:
//  1. Built-in defaults (lowest priority)
//  2. Global user config (~/.config/depview/config.toml)
//  3. Project config (.depview/config.toml or depview.toml)
//  4. Environment variables (DEPVIEW_*)
//  5. CLI flags (highest priority)
package config

import (
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/albertocavalcante/depview/pkg/usage"
)

// Config is the main configuration struct for depview.
type Config struct {
	// Data configures where build state is persisted.
	Data DataConfig `toml:"data"`

	// Manifest configures the target manifest.
	Manifest ManifestConfig `toml:"manifest"`

	// Targets selects which target types are evaluated.
	Targets TargetsConfig `toml:"targets"`

	// Build configures target evaluation.
	Build BuildConfig `toml:"build"`

	// Usage configures the usage registry.
	Usage UsageConfig `toml:"usage"`

	// Watch configures watch mode.
	Watch WatchConfig `toml:"watch"`

	// Log configures logging.
	Log LogConfig `toml:"log"`
}

// DataConfig holds persisted state locations.
type DataConfig struct {
	// Dir is the data directory; relative paths are resolved against the
	// workspace root.
	Dir string `toml:"dir"`
}

// ManifestConfig holds target manifest settings.
type ManifestConfig struct {
	// Path is the manifest file; relative paths are resolved against the
	// workspace root.
	Path string `toml:"path"`
}

// TargetsConfig specifies which target types to enable/disable.
type TargetsConfig struct {
	// Enabled is the list of target types to evaluate. Empty means all.
	Enabled []string `toml:"enabled"`

	// Disabled is the list of target types to skip.
	// Takes precedence over Enabled.
	Disabled []string `toml:"disabled"`
}

// BuildConfig holds evaluation settings.
type BuildConfig struct {
	// Workers bounds the number of targets evaluated in parallel.
	// Zero means one per CPU.
	Workers int `toml:"workers"`

	// Strict makes save failures fail the command.
	Strict *bool `toml:"strict"`
}

// UsageConfig holds usage registry settings.
type UsageConfig struct {
	// DescriptorCacheSize bounds the parsed descriptor cache.
	DescriptorCacheSize int `toml:"descriptor_cache_size"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	// DebounceMs is the quiet period before re-evaluating after a change.
	DebounceMs int `toml:"debounce_ms"`

	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `toml:"metrics_addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Verbosity is 0 (errors) through 4 (trace).
	Verbosity *int `toml:"verbosity"`

	// Format is "text" or "json".
	Format string `toml:"format"`
}

// Defaults.
const (
	DefaultDataDir      = ".depview/data"
	DefaultManifestPath = "targets.toml"
	DefaultDebounceMs   = 500
	DefaultLogFormat    = "text"
)

// NewConfig creates a new Config with built-in defaults.
func NewConfig() *Config {
	falseVal := false
	verbosity := 1
	return &Config{
		Data: DataConfig{
			Dir: DefaultDataDir,
		},
		Manifest: ManifestConfig{
			Path: DefaultManifestPath,
		},
		Targets: TargetsConfig{
			Enabled:  []string{},
			Disabled: []string{},
		},
		Build: BuildConfig{
			Strict: &falseVal,
		},
		Usage: UsageConfig{
			DescriptorCacheSize: usage.DefaultDescriptorCacheSize,
		},
		Watch: WatchConfig{
			DebounceMs: DefaultDebounceMs,
		},
		Log: LogConfig{
			Verbosity: &verbosity,
			Format:    DefaultLogFormat,
		},
	}
}

// IsTargetTypeEnabled checks if a target type is enabled in the configuration.
func (c *Config) IsTargetTypeEnabled(typeID string) bool {
	// Check explicit disabled list first (highest priority)
	if slices.Contains(c.Targets.Disabled, typeID) {
		return false
	}
	if len(c.Targets.Enabled) == 0 {
		return true
	}
	return slices.Contains(c.Targets.Enabled, typeID)
}

// WorkerCount returns the effective number of parallel workers.
func (c *Config) WorkerCount() int {
	if c.Build.Workers > 0 {
		return c.Build.Workers
	}
	return runtime.NumCPU()
}

// IsStrict reports whether save failures fail the command.
func (c *Config) IsStrict() bool {
	return c.Build.Strict != nil && *c.Build.Strict
}

// Debounce returns the watch debounce interval.
func (c *Config) Debounce() time.Duration {
	if c.Watch.DebounceMs <= 0 {
		return DefaultDebounceMs * time.Millisecond
	}
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// LogVerbosity returns the configured verbosity, defaulting to warnings.
func (c *Config) LogVerbosity() int {
	if c.Log.Verbosity == nil {
		return 1
	}
	return *c.Log.Verbosity
}

// DataDir returns the data directory resolved against root.
func (c *Config) DataDir(root string) string {
	return resolve(root, c.Data.Dir)
}

// ManifestPath returns the manifest path resolved against root.
func (c *Config) ManifestPath(root string) string {
	return resolve(root, c.Manifest.Path)
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// Merge merges another config into this one (other takes precedence).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Data.Dir != "" {
		c.Data.Dir = other.Data.Dir
	}
	if other.Manifest.Path != "" {
		c.Manifest.Path = other.Manifest.Path
	}

	// Merge target type selection
	if len(other.Targets.Enabled) > 0 {
		c.Targets.Enabled = other.Targets.Enabled
	}
	if len(other.Targets.Disabled) > 0 {
		c.Targets.Disabled = append(c.Targets.Disabled, other.Targets.Disabled...)
	}

	if other.Build.Workers != 0 {
		c.Build.Workers = other.Build.Workers
	}
	if other.Build.Strict != nil {
		c.Build.Strict = other.Build.Strict
	}

	if other.Usage.DescriptorCacheSize != 0 {
		c.Usage.DescriptorCacheSize = other.Usage.DescriptorCacheSize
	}

	if other.Watch.DebounceMs != 0 {
		c.Watch.DebounceMs = other.Watch.DebounceMs
	}
	if other.Watch.MetricsAddr != "" {
		c.Watch.MetricsAddr = other.Watch.MetricsAddr
	}

	if other.Log.Verbosity != nil {
		c.Log.Verbosity = other.Log.Verbosity
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}
