package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"mvdan.cc/sh/v3/shell"

	"freecrafter/internal/errs"
)

// Config captures optional per-checkout build settings read from fcboot.yaml.
type Config struct {
	Version int          `yaml:"version"`
	Build   BuildConfig  `yaml:"build"`
	Retry   RetryConfig  `yaml:"retry"`
	Qt      QtConfig     `yaml:"qt"`
	Python  PythonConfig `yaml:"python"`
}

// BuildConfig controls the CMake invocation.
type BuildConfig struct {
	Dir       string   `yaml:"dir"`
	Type      string   `yaml:"type"`
	Generator string   `yaml:"generator"`
	CMakeArgs []string `yaml:"cmake_args"`
}

// RetryConfig bounds retries for external commands.
type RetryConfig struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

// QtConfig adds search roots to the well-known Qt locations.
type QtConfig struct {
	SearchRoots []string `yaml:"search_roots"`
}

// PythonConfig selects the interpreter used for pip and aqtinstall.
type PythonConfig struct {
	Executable   string `yaml:"executable"`
	Requirements string `yaml:"requirements"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Retry: RetryConfig{
			Attempts: 3,
			Delay:    time.Second,
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration. Values are expanded against the process
// environment.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an explicit variable lookup for expansion.
func LoadWithEnv(path string, env func(string) string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, errs.WrapConfig(err, "parse %s", path)
	}
	cfg.ApplyDefaults()
	if err := cfg.Expand(env); err != nil {
		return Config{}, errs.WrapConfig(err, "expand %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when the
// YAML omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = defaults.Retry.Attempts
	}
	if c.Retry.Delay == 0 {
		c.Retry.Delay = defaults.Retry.Delay
	}
}

// Validate rejects settings no command could honour.
func (c Config) Validate() error {
	if c.Retry.Attempts < 1 {
		return errs.Config("retry.attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	if c.Retry.Delay < 0 {
		return errs.Config("retry.delay must not be negative, got %s", c.Retry.Delay)
	}
	return nil
}

// Expand substitutes $VAR and ${VAR} references in every string setting.
func (c *Config) Expand(env func(string) string) error {
	fields := []*string{
		&c.Build.Dir,
		&c.Build.Type,
		&c.Build.Generator,
		&c.Python.Executable,
		&c.Python.Requirements,
	}
	for _, field := range fields {
		if err := expandInto(field, env); err != nil {
			return err
		}
	}
	for i := range c.Build.CMakeArgs {
		if err := expandInto(&c.Build.CMakeArgs[i], env); err != nil {
			return err
		}
	}
	for i := range c.Qt.SearchRoots {
		if err := expandInto(&c.Qt.SearchRoots[i], env); err != nil {
			return err
		}
	}
	return nil
}

func expandInto(value *string, env func(string) string) error {
	if *value == "" {
		return nil
	}
	expanded, err := shell.Expand(*value, env)
	if err != nil {
		return fmt.Errorf("expand %q: %w", *value, err)
	}
	*value = expanded
	return nil
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}
