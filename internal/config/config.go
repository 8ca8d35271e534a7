// Package config provides configuration types and defaults for partgraph.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/partgraph/internal/flags"
	"github.com/zjrosen/partgraph/internal/log"
	"github.com/zjrosen/partgraph/internal/tracing"
)

// Config holds all configuration options for partgraph.
type Config struct {
	// Manifests lists the directories scanned for plugin manifests.
	Manifests []string       `mapstructure:"manifests"`
	Watch     WatchConfig    `mapstructure:"watch"`
	Cache     CacheConfig    `mapstructure:"cache"`
	Store     StoreConfig    `mapstructure:"store"`
	Tracing   tracing.Config `mapstructure:"tracing"`
	Log       LogConfig      `mapstructure:"log"`

	// Flags toggles optional behavior; see package flags for the names.
	Flags map[string]bool `mapstructure:"flags"`
}

// WatchConfig holds watch mode options.
type WatchConfig struct {
	// Debounce is how long the watcher waits for file activity to settle
	// before rescanning. Default: 300ms
	Debounce time.Duration `mapstructure:"debounce"`
}

// CacheConfig holds acceptance cache options.
type CacheConfig struct {
	// TTL is how long an acceptance decision stays cached. Zero disables the cache.
	// Default: 10m
	TTL time.Duration `mapstructure:"ttl"`

	// CleanupInterval is how often expired decisions are evicted. Default: 30m
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// StoreConfig holds snapshot store options.
type StoreConfig struct {
	// Path is the SQLite database holding parsed manifest snapshots.
	// Empty disables the store. Default: ~/.partgraph/snapshots.db
	Path string `mapstructure:"path"`
}

// LogConfig holds debug logging options.
type LogConfig struct {
	// Debug enables the debug log. Also enabled by --debug or PARTGRAPH_DEBUG.
	Debug bool `mapstructure:"debug"`

	// Path is the debug log file. Default: debug.log in the working directory
	Path string `mapstructure:"path"`

	// Level is the minimum level written: debug, info, warn or error. Default: debug
	Level string `mapstructure:"level"`
}

// DefaultStorePath returns the default snapshot database path.
// Returns ~/.partgraph/snapshots.db or empty string if home dir unavailable.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".partgraph", "snapshots.db")
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/partgraph/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "partgraph", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Manifests: []string{"plugins"},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
		Cache: CacheConfig{
			TTL:             10 * time.Minute,
			CleanupInterval: 30 * time.Minute,
		},
		Store: StoreConfig{
			Path: DefaultStorePath(),
		},
		Tracing: tracing.DefaultConfig(),
		Log: LogConfig{
			Path:  "debug.log",
			Level: "debug",
		},
	}
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := ValidateManifests(c.Manifests); err != nil {
		return err
	}
	if err := ValidateWatch(c.Watch); err != nil {
		return err
	}
	if err := ValidateCache(c.Cache); err != nil {
		return err
	}
	if err := ValidateTracing(c.Tracing); err != nil {
		return err
	}
	if err := ValidateLog(c.Log); err != nil {
		return err
	}
	return ValidateFlags(c.Flags)
}

// ValidateManifests checks the manifest directory list.
// Returns nil for an empty list; callers then scan nothing.
func ValidateManifests(dirs []string) error {
	for i, d := range dirs {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("manifests[%d]: directory is required", i)
		}
	}
	return nil
}

// ValidateWatch checks watch configuration for errors.
func ValidateWatch(w WatchConfig) error {
	if w.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", w.Debounce)
	}
	return nil
}

// ValidateCache checks cache configuration for errors.
func ValidateCache(c CacheConfig) error {
	if c.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.TTL)
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("cache.cleanup_interval must not be negative, got %s", c.CleanupInterval)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(t tracing.Config) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}

	if t.Exporter != "" {
		switch t.Exporter {
		case tracing.ExporterNone, tracing.ExporterFile, tracing.ExporterStdout, tracing.ExporterOTLP:
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", t.Exporter)
		}
	}

	// Path requirements only matter when tracing is on
	if t.Enabled {
		if t.Exporter == tracing.ExporterFile && t.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if t.Exporter == tracing.ExporterOTLP && t.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// ValidateLog checks log configuration for errors.
func ValidateLog(l LogConfig) error {
	if l.Level == "" {
		return nil
	}
	if _, ok := log.ParseLevel(l.Level); !ok {
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", l.Level)
	}
	return nil
}

// ValidateFlags rejects unknown feature flags.
func ValidateFlags(f map[string]bool) error {
	if err := flags.Validate(f); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# partgraph configuration

# Directories scanned for plugin manifests (*.yaml, *.yml).
# Each manifest describes the types and parts of one plugin.
manifests:
  - plugins

# Watch mode ('partgraph watch')
watch:
  debounce: 300ms   # Wait for file activity to settle before rescanning

# Acceptance cache: import/export decisions are cached until the registry changes
cache:
  ttl: 10m                # 0 disables the cache
  cleanup_interval: 30m   # How often expired decisions are evicted

# Snapshot store: parsed manifests keyed by content digest, so unchanged
# manifests are not parsed again on the next run
# store:
#   path: ~/.partgraph/snapshots.db   # Empty disables the store

# Debug logging (also enabled by --debug or PARTGRAPH_DEBUG=1)
log:
  debug: false
  path: debug.log
  level: debug      # debug, info, warn, error

# Feature flags
# flags:
#   framework-types: true    # Register System.Object, primitives and wrapper definitions
#   prune-snapshots: false   # Drop stored snapshots of manifests that no longer exist

# Distributed tracing
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/partgraph/traces/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
#   service_name: partgraph
#
# Example: Send traces to Jaeger via OTLP
# tracing:
#   enabled: true
#   exporter: otlp
#   otlp_endpoint: jaeger.internal:4317
#   sample_rate: 0.1  # Sample 10% of traces
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
