// Package config loads and saves the compiler/VM's settings, grounded
// on the teacher's struct-of-structs-with-toml-tags shape and its
// search-path/default-on-missing-file loading convention, re-themed
// from ARM emulation knobs to this ISA's sections (spec.md SPEC_FULL
// §4.8).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable of the fjp toolchain.
type Config struct {
	Execution struct {
		MaxSteps     uint64 `toml:"max_steps"`
		StackSize    int    `toml:"stack_size"`
		DefaultDebug bool   `toml:"default_debug"`
	} `toml:"execution"`

	Debugger struct {
		HistorySize int  `toml:"history_size"`
		ShowSource  bool `toml:"show_source"`
	} `toml:"debugger"`

	Display struct {
		NumberFormat string `toml:"number_format"` // dec, hex
		TraceContext int    `toml:"trace_context"`
	} `toml:"display"`

	Trace struct {
		OutputFile string `toml:"output_file"`
	} `toml:"trace"`

	API struct {
		Port        int `toml:"port"`
		MaxSessions int `toml:"max_sessions"`
	} `toml:"api"`
}

// Default returns a Config with spec.md/SPEC_FULL.md's documented
// defaults.
func Default() *Config {
	cfg := &Config{}

	cfg.Execution.MaxSteps = 0 // unbounded
	cfg.Execution.StackSize = 1024
	cfg.Execution.DefaultDebug = false

	cfg.Debugger.HistorySize = 1000
	cfg.Debugger.ShowSource = true

	cfg.Display.NumberFormat = "dec"
	cfg.Display.TraceContext = 5

	cfg.Trace.OutputFile = "stacktrace.txt"

	cfg.API.Port = 8080
	cfg.API.MaxSessions = 32

	return cfg
}

// XDGConfigPath returns $XDG_CONFIG_HOME/fjp/config.toml, the last
// stop in the search order before falling back to defaults.
func XDGConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "fjp", "config.toml")
}

// Resolve implements the search order of SPEC_FULL.md §4.8: an
// explicit -config path takes precedence, then ./fjp.toml, then the
// XDG path, and finally Default() if none of those exist.
func Resolve(explicitPath string) (*Config, error) {
	candidates := []string{explicitPath, "fjp.toml", XDGConfigPath()}
	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFrom(path)
	}
	return Default(), nil
}

// LoadFrom reads and decodes path, layered over Default() so a config
// file only needs to mention the settings it overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// SaveTo writes cfg to path in TOML form, creating parent directories
// as needed.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user-specified config output path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
