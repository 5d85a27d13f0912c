// Package config loads the readi.yaml configuration of the demo CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up when no path is given.
const FileName = "readi.yaml"

// Config represents the optional readi.yaml configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Debug  bool         `yaml:"debug"`
	Logger LoggerConfig `yaml:"logger"`
	Heroes HeroesConfig `yaml:"heroes"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level       string `yaml:"level,omitempty"`
	Development bool   `yaml:"development"`
}

// LoggerConfig is handed to the demo's console logger as a value provider.
type LoggerConfig struct {
	Allow bool `yaml:"allow"`
}

// HeroesConfig controls the stubbed HTTP backend of the heroes module.
type HeroesConfig struct {
	Delay time.Duration `yaml:"delay"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info"},
		Logger: LoggerConfig{Allow: true},
		Heroes: HeroesConfig{Delay: 50 * time.Millisecond},
	}
}

// Load reads the file at path. An empty path reads FileName from the working
// directory and falls back to Default when it does not exist.
func Load(path string) (*Config, error) {
	optional := path == ""
	if optional {
		path = FileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes the level and rejects values the CLI cannot use.
func (c *Config) Validate() error {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Heroes.Delay < 0 {
		return fmt.Errorf("heroes.delay: must not be negative, got %s", c.Heroes.Delay)
	}
	return nil
}
