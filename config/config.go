// Package config loads corvid's optional TOML configuration file
// (spec.md §4.12): data/log directory locations, buffer pool sizing,
// and logging verbosity.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/corvidsql/corvid/storage/buffer"
)

// Config is corvid's startup configuration, defaulted and optionally
// overridden by a config.toml.
type Config struct {
	DataDir            string `toml:"data_dir"`
	LogDir             string `toml:"log_dir"`
	BufferPoolCapacity int    `toml:"buffer_pool_capacity"`
	EvictionPolicy     string `toml:"eviction_policy"`
	LogLevel           string `toml:"log_level"`
}

// Default returns corvid's built-in defaults.
func Default() Config {
	return Config{
		DataDir:            "data",
		LogDir:             "log",
		BufferPoolCapacity: 16,
		EvictionPolicy:     "lru",
		LogLevel:           "info",
	}
}

// Load reads path and merges it over Default(). A missing file is not
// an error; corvid runs on defaults alone in that case.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Policy translates the configured eviction_policy string into a
// buffer.Policy, defaulting to LRU for any unrecognized value.
func (c Config) Policy() buffer.Policy {
	if c.EvictionPolicy == "fifo" {
		return buffer.FIFO
	}
	return buffer.LRU
}
