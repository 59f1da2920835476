// Package config loads the YAML configuration file the run, submit and
// status subcommands start from, mirroring the teacher's internal/cli loadConfig
// pattern exactly (gopkg.in/yaml.v3, os.ReadFile, then yaml.Unmarshal).
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete, file-backed configuration for a fast-pool
// process: how many workers to run, what Go-idiom substitutes to use for
// the stack-size/name knobs the pool's Builder accepts, and how to expose
// logging and metrics.
type Config struct {
	Worker struct {
		Threads   int    `yaml:"threads"`
		StackSize int    `yaml:"stack_size"`
		Name      string `yaml:"name"`
	} `yaml:"worker"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`

	Demo struct {
		PeriodicInterval time.Duration `yaml:"periodic_interval"`
	} `yaml:"demo"`
}

// Default returns a Config with sane defaults, used when no config file is
// given. Worker.Threads mirrors pool.Builder's own default (2x logical
// CPUs) so a config-driven pool and a zero-value Builder agree absent
// explicit configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Worker.Threads = 2 * runtime.GOMAXPROCS(0)
	cfg.Log.Level = "info"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 9090
	cfg.Demo.PeriodicInterval = 500 * time.Millisecond
	return cfg
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	return cfg, nil
}
