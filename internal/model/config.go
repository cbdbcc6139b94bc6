// Package model holds the configuration shared by the CLI and the pipeline.
package model

import "time"

// Config is the full runtime configuration, loadable from
// ~/.kbmetrics/config.yaml and overridable via KBMETRICS_* environment
// variables and CLI flags.
type Config struct {
	KB          KBConfig          `yaml:"kb"`
	Lock        LockConfig        `yaml:"lock"`
	Cache       CacheConfig       `yaml:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Output      OutputConfig      `yaml:"output"`
}

// KBConfig tunes knowledge base parsing.
type KBConfig struct {
	// TypeDelim separates entity-type tags in a row's TYPE field.
	TypeDelim string `yaml:"type_delim"`
}

// LockConfig controls the advisory file lock around a KB run.
type LockConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig controls caching of parsed external stats dumps.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
}

// ConcurrencyConfig controls batch processing parallelism. A single KB run
// stays strictly single-threaded; workers apply across independent files.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// OutputConfig controls terminal output.
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
	// Progress enables the in-place progress display for engine passes.
	Progress bool `yaml:"progress"`
	// ProgressPerSecond caps progress repaints per second.
	ProgressPerSecond float64 `yaml:"progress_per_second"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		KB: KBConfig{
			TypeDelim: "+",
		},
		Lock: LockConfig{
			Enabled: true,
			Timeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     "", // resolved to ~/.kbmetrics/cache at startup
			TTL:     7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Output: OutputConfig{
			Verbose:           false,
			Progress:          true,
			ProgressPerSecond: 10,
		},
	}
}
