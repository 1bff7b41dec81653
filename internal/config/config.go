// Package config loads gpucompress settings from YAML.
//
// Lookup order for the config file:
//   - the --config flag
//   - GPUCOMPRESS_CONFIG
//   - $XDG_CONFIG_HOME/gpucompress/config.yaml (~/.config if unset), if present
//
// With no file, Default() is used as-is. A file only needs the keys it
// changes; everything else keeps its default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Murchiz/Gpucompress/internal/accel"
	"github.com/Murchiz/Gpucompress/internal/archive"
)

const EnvConfig = "GPUCOMPRESS_CONFIG"

// ConflictStrategies are the accepted values of Conflict.
var ConflictStrategies = []string{"ask", "keep-local", "overwrite", "keep-both", "abort"}

var ErrInvalid = errors.New("invalid configuration")

// Config holds user settings.
type Config struct {
	// DefaultFormat is used when compress is given neither --format nor
	// a recognizable output extension.
	DefaultFormat string `yaml:"default_format"`

	// Level is 1-9, or 0 for each codec's default.
	Level int `yaml:"level"`

	// Accelerator is auto, cuda, vulkan, software or none.
	Accelerator string `yaml:"accelerator"`

	// CatalogPath is the bbolt file recording written archives.
	CatalogPath string `yaml:"catalog_path"`

	// UseKeyring lets commands read the password from the OS keyring.
	UseKeyring bool `yaml:"use_keyring"`

	// Conflict is how extract treats files that already exist.
	Conflict string `yaml:"conflict"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultFormat: string(archive.FormatTarZst),
		Level:         0,
		Accelerator:   accel.BackendAuto.String(),
		CatalogPath:   filepath.Join(dataHome(), "gpucompress", "catalog.db"),
		UseKeyring:    true,
		Conflict:      "ask",
	}
}

func dataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share")
}

// DefaultPath is where config init writes and Load looks last.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "gpucompress", "config.yaml")
}

// Load resolves the config file (explicit path, then environment, then
// the default location) and returns the settings with the path used.
// The returned path is empty when defaults were used.
func Load(explicit string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := LoadFile(explicit)
		return cfg, explicit, err
	}
	if p := os.Getenv(EnvConfig); p != "" {
		cfg, err := LoadFile(p)
		return cfg, p, err
	}
	p := DefaultPath()
	if _, err := os.Stat(p); err == nil {
		cfg, err := LoadFile(p)
		return cfg, p, err
	}
	return Default(), "", nil
}

// LoadFile reads path over the defaults and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.CatalogPath = expandPath(cfg.CatalogPath)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// expandPath expands a leading ~ and environment variables.
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		p = filepath.Join(home, p[1:])
	}
	return p
}

// Validate rejects unknown values.
func (c *Config) Validate() error {
	if _, err := archive.ParseFormat(c.DefaultFormat); err != nil {
		return fmt.Errorf("%w: default_format: %w", ErrInvalid, err)
	}
	if c.Level < 0 || c.Level > 9 {
		return fmt.Errorf("%w: level must be 0-9, got %d", ErrInvalid, c.Level)
	}
	if _, err := accel.ParseBackend(c.Accelerator); err != nil {
		return fmt.Errorf("%w: accelerator: %w", ErrInvalid, err)
	}
	if c.CatalogPath == "" {
		return fmt.Errorf("%w: catalog_path is empty", ErrInvalid)
	}
	if !slices.Contains(ConflictStrategies, c.Conflict) {
		return fmt.Errorf("%w: conflict must be one of %s, got %q",
			ErrInvalid, strings.Join(ConflictStrategies, ", "), c.Conflict)
	}
	return nil
}

// Format returns DefaultFormat parsed. Call after Validate.
func (c *Config) Format() archive.Format {
	f, _ := archive.ParseFormat(c.DefaultFormat)
	return f
}

// Backend returns Accelerator parsed. Call after Validate.
func (c *Config) Backend() accel.Backend {
	b, _ := accel.ParseBackend(c.Accelerator)
	return b
}

// Write saves c as YAML. An existing file is only replaced when force is set.
func (c *Config) Write(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
