// Package config loads the tick pipeline's buffer and scheduling
// configuration from CLI flags, environment variable fallbacks, and an
// optional static YAML file — in that priority order.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable named in spec.md §6's flag table.
type Config struct {
	DryRun                    bool
	Once                      bool
	IntervalSeconds           int
	IncludeMasterNodes        bool
	BufferSpareNodes          int
	NoScaleDown               bool
	EnableHealthcheckEndpoint bool

	BufferCPUPercentage    float64
	BufferMemoryPercentage float64
	BufferPodsPercentage   float64

	// Fixed buffers are quantity strings (parsed once at startup by
	// internal/quantity), matching the CLI flag's own string type.
	BufferCPUFixed    string
	BufferMemoryFixed string
	BufferPodsFixed   string
}

// Defaults returns the built-in defaults from spec.md §6.
func Defaults() Config {
	return Config{
		DryRun:                    false,
		Once:                      false,
		IntervalSeconds:           60,
		IncludeMasterNodes:        false,
		BufferSpareNodes:          1,
		NoScaleDown:               false,
		EnableHealthcheckEndpoint: false,
		BufferCPUPercentage:       10,
		BufferMemoryPercentage:    10,
		BufferPodsPercentage:      10,
		BufferCPUFixed:            "200m",
		BufferMemoryFixed:         "200Mi",
		BufferPodsFixed:           "10",
	}
}

// fileOverrides is the shape of the optional --config YAML file: static
// overrides for the buffer defaults and spare-node count only. Everything
// else (dry-run, debug, once, interval, ...) is a runtime decision made on
// the command line and has no file form.
type fileOverrides struct {
	BufferSpareNodes *int `yaml:"bufferSpareNodes"`

	BufferCPUPercentage    *float64 `yaml:"bufferCpuPercentage"`
	BufferMemoryPercentage *float64 `yaml:"bufferMemoryPercentage"`
	BufferPodsPercentage   *float64 `yaml:"bufferPodsPercentage"`

	BufferCPUFixed    *string `yaml:"bufferCpuFixed"`
	BufferMemoryFixed *string `yaml:"bufferMemoryFixed"`
	BufferPodsFixed   *string `yaml:"bufferPodsFixed"`
}

// ApplyFile reads path and overlays any values it sets onto cfg in place.
// An empty path is not an error — the file is optional; once the path is
// non-empty, read errors (including a nonexistent file) are reported.
func ApplyFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var f fileOverrides
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if f.BufferSpareNodes != nil {
		cfg.BufferSpareNodes = *f.BufferSpareNodes
	}
	if f.BufferCPUPercentage != nil {
		cfg.BufferCPUPercentage = *f.BufferCPUPercentage
	}
	if f.BufferMemoryPercentage != nil {
		cfg.BufferMemoryPercentage = *f.BufferMemoryPercentage
	}
	if f.BufferPodsPercentage != nil {
		cfg.BufferPodsPercentage = *f.BufferPodsPercentage
	}
	if f.BufferCPUFixed != nil {
		cfg.BufferCPUFixed = *f.BufferCPUFixed
	}
	if f.BufferMemoryFixed != nil {
		cfg.BufferMemoryFixed = *f.BufferMemoryFixed
	}
	if f.BufferPodsFixed != nil {
		cfg.BufferPodsFixed = *f.BufferPodsFixed
	}
	return nil
}

// EnvOverrides applies BUFFER_SPARE_NODES / BUFFER_<R>_PERCENTAGE /
// BUFFER_<R>_FIXED when set, in place. Called after ApplyFile so env
// values win over file values; the caller then overlays the result only
// onto fields whose CLI flag was not passed explicitly, so an explicit
// CLI flag still wins over both.
func EnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("BUFFER_SPARE_NODES"); ok {
		if n, err := parseInt(v); err == nil {
			cfg.BufferSpareNodes = n
		}
	}
	if v, ok := os.LookupEnv("BUFFER_CPU_PERCENTAGE"); ok {
		if f, err := parseFloat(v); err == nil {
			cfg.BufferCPUPercentage = f
		}
	}
	if v, ok := os.LookupEnv("BUFFER_MEMORY_PERCENTAGE"); ok {
		if f, err := parseFloat(v); err == nil {
			cfg.BufferMemoryPercentage = f
		}
	}
	if v, ok := os.LookupEnv("BUFFER_PODS_PERCENTAGE"); ok {
		if f, err := parseFloat(v); err == nil {
			cfg.BufferPodsPercentage = f
		}
	}
	if v, ok := os.LookupEnv("BUFFER_CPU_FIXED"); ok {
		cfg.BufferCPUFixed = v
	}
	if v, ok := os.LookupEnv("BUFFER_MEMORY_FIXED"); ok {
		cfg.BufferMemoryFixed = v
	}
	if v, ok := os.LookupEnv("BUFFER_PODS_FIXED"); ok {
		cfg.BufferPodsFixed = v
	}
}

func parseInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

func parseFloat(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}
