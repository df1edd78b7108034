// Package config loads and saves the archive-relay settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath   = "archive-relay.yaml"
	DefaultDelayPerByte = "1us"
	DefaultLogLevel     = "info"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

type Config struct {
	Transfer    TransferConfig    `yaml:"transfer"`
	Naming      NamingConfig      `yaml:"naming"`
	Destination DestinationConfig `yaml:"destination"`
	Log         LogConfig         `yaml:"log"`
}

// TransferConfig controls the simulated throughput. DelayPerByte is a Go
// duration string; each entry takes size*DelayPerByte to complete.
type TransferConfig struct {
	DelayPerByte string `yaml:"delay_per_byte"`
}

type NamingConfig struct {
	LegacySplit bool `yaml:"legacy_split"`
}

type DestinationConfig struct {
	Default string `yaml:"default"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func Default() Config {
	return Config{
		Transfer: TransferConfig{DelayPerByte: DefaultDelayPerByte},
		Log:      LogConfig{Level: DefaultLogLevel},
	}
}

// Normalize replaces invalid or missing values with defaults.
func Normalize(raw Config) Config {
	norm := raw
	norm.Transfer.DelayPerByte = strings.TrimSpace(norm.Transfer.DelayPerByte)
	if d, err := time.ParseDuration(norm.Transfer.DelayPerByte); err != nil || d < 0 {
		norm.Transfer.DelayPerByte = DefaultDelayPerByte
	}
	norm.Log.Level = strings.ToLower(strings.TrimSpace(norm.Log.Level))
	if !validLogLevels[norm.Log.Level] {
		norm.Log.Level = DefaultLogLevel
	}
	norm.Log.File = strings.TrimSpace(norm.Log.File)
	norm.Destination.Default = strings.TrimSpace(norm.Destination.Default)
	return norm
}

// DelayPerByte is the parsed transfer delay. Normalize guarantees it parses.
func (c Config) DelayPerByte() time.Duration {
	d, err := time.ParseDuration(c.Transfer.DelayPerByte)
	if err != nil || d < 0 {
		d, _ = time.ParseDuration(DefaultDelayPerByte)
	}
	return d
}

// ParseDelayPerByte validates a user-supplied override.
func ParseDelayPerByte(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("delay per byte: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("delay per byte must be >= 0, got %s", d)
	}
	return d, nil
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	p := normalizePath(path)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", p, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", p, err)
	}
	return Normalize(cfg), nil
}

func Save(path string, cfg Config) error {
	p := normalizePath(path)
	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config for %s: %w", p, err)
	}
	return writeFileAtomic(p, data)
}

func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(Normalize(cfg))
}

func normalizePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return DefaultConfigPath
	}
	return p
}
