package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/CTAG07/ngram/pkg/store"
)

// StoreConfig selects where models are kept.
type StoreConfig struct {
	Backend string `json:"backend" yaml:"backend"`
	Path    string `json:"path" yaml:"path"`
}

// GenerateConfig holds defaults for the generate command and endpoint.
type GenerateConfig struct {
	Length int `json:"length" yaml:"length"`
}

// ServerConfig holds the configuration for the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Store    *StoreConfig    `json:"store" yaml:"store"`
	LogLevel string          `json:"log_level" yaml:"log_level"`
	Generate *GenerateConfig `json:"generate" yaml:"generate"`
	Server   *ServerConfig   `json:"server" yaml:"server"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Store: &StoreConfig{
			Backend: store.BackendDir,
			Path:    "models",
		},
		LogLevel: "info",
		Generate: &GenerateConfig{Length: 50},
		Server:   &ServerConfig{Addr: ":7280"},
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadConfig reads the configuration at path, as YAML when the extension is
// .yaml or .yml and as JSON otherwise. If the file doesn't exist, it is
// created with default values.
func LoadConfig(path string, logger *slog.Logger) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = marshalConfig(path, config)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Defaults are still usable.
				logger.Warn("Failed to write default config file", "path", path, "error", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(file, config)
	} else {
		err = json.Unmarshal(file, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.fillDefaults()
	return config, nil
}

func marshalConfig(path string, config *Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(config)
	}
	return json.MarshalIndent(config, "", "  ")
}

// fillDefaults restores sections a partial config file set to null.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.Store == nil {
		c.Store = def.Store
	}
	if c.Generate == nil {
		c.Generate = def.Generate
	}
	if c.Server == nil {
		c.Server = def.Server
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}
