// Package config loads process-wide settings from the environment.
package config

import (
	"fmt"
	"sync"

	"github.com/kelseyhightower/envconfig"
)

// DefaultBufferSize is the default channel buffer capacity: 2 GiB of
// virtual reservation. Pages are committed lazily, so the large default
// costs address space, not memory.
const DefaultBufferSize = 2 * 1024 * 1024 * 1024

// Config holds the tunables honored by every package in the module.
type Config struct {
	// BufferSize is the default channel buffer capacity in bytes.
	BufferSize uint64 `envconfig:"SHMTASK_BUFFER_SIZE" default:"2147483648"`
	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `envconfig:"SHMTASK_LOG_LEVEL" default:"warn"`
	// LogDev switches to the human-readable console encoder.
	LogDev bool `envconfig:"SHMTASK_LOG_DEV" default:"false"`
}

var (
	once   sync.Once
	loaded Config
)

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Get returns the process-wide configuration, loading it once. Invalid
// environment values fall back to defaults rather than failing the process.
func Get() Config {
	once.Do(func() {
		cfg, err := Load()
		if err != nil {
			cfg = Config{BufferSize: DefaultBufferSize, LogLevel: "warn"}
		}
		loaded = cfg
	})
	return loaded
}
