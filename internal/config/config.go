// Package config loads dlldepends settings from a YAML file, a .env file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"dlldepends/internal/module"
)

// DefaultFile is read from the working directory when --config is not given.
const DefaultFile = "dlldepends.yaml"

// Environment variables that override file settings.
const (
	EnvLogLevel = "DLLDEPENDS_LOG_LEVEL"
	EnvWorkers  = "DLLDEPENDS_WORKERS"
	EnvCacheDir = "DLLDEPENDS_CACHE_DIR"
)

// CacheConfig controls the persistent classification cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Config holds all settings.
type Config struct {
	LogLevel string `yaml:"log_level"`
	// Workers is the number of projects classified concurrently.
	Workers int `yaml:"workers"`
	// ReadCacheSize is the number of documents kept in memory per run.
	ReadCacheSize int                 `yaml:"read_cache_size"`
	Cache         CacheConfig         `yaml:"cache"`
	Exclude       []string            `yaml:"exclude"`
	Modules       []module.ModuleRule `yaml:"modules"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		Workers:       1,
		ReadCacheSize: 256,
	}
}

// Load reads path over the defaults. When required is false a missing file
// yields the defaults.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from .env files into the process environment.
// Existing variables are not overwritten and missing files are skipped.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}
	if v, ok := lookup(EnvCacheDir); ok && v != "" {
		c.Cache.Dir = v
		c.Cache.Enabled = true
	}
	return nil
}

// Validate checks settings for consistency.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.ReadCacheSize < 0 {
		return fmt.Errorf("read_cache_size must not be negative, got %d", c.ReadCacheSize)
	}
	for i, m := range c.Modules {
		if m.Name == "" {
			return fmt.Errorf("modules[%d]: name is required", i)
		}
	}
	return nil
}

// NewLogger creates a logger for the configured level writing to w.
func (c *Config) NewLogger(w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
