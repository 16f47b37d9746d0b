// Package config handles configuration loading and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the mukha daemon.
type Config struct {
	CameraID   int    `yaml:"camera_id"`
	ListenAddr string `yaml:"listen_addr"`

	DataDir   string `yaml:"data_dir"`
	PluginDir string `yaml:"plugin_dir"`
	StaticDir string `yaml:"static_dir"`

	LogLevel string `yaml:"log_level"`

	// Pipeline pacing
	IdleFPS         int `yaml:"idle_fps"`
	ActiveFPS       int `yaml:"active_fps"`
	IdleTimeoutMs   int `yaml:"idle_timeout_ms"`
	PluginTimeoutMs int `yaml:"plugin_timeout_ms"`

	// Profile is the name of the stored profile loaded at startup.
	Profile         string `yaml:"profile"`
	DwellActivation bool   `yaml:"dwell_activation"`
	TrayEnabled     bool   `yaml:"tray_enabled"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	dataDir := filepath.Join(home, ".mukha")

	return &Config{
		CameraID:        0,
		ListenAddr:      ":8080",
		DataDir:         dataDir,
		PluginDir:       filepath.Join(dataDir, "plugins"),
		LogLevel:        "info",
		IdleFPS:         5,
		ActiveFPS:       15,
		IdleTimeoutMs:   2000,
		PluginTimeoutMs: 5000,
		Profile:         "default",
		TrayEnabled:     true,
	}
}

// Paths returns the candidate config file locations in lookup order.
func Paths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".config", "mukha", "config.yaml"),
		filepath.Join(home, ".mukha", "config.yaml"),
	}
}

// Load reads the explicit path if given, otherwise the first candidate path
// that exists. Missing files fall back to defaults; malformed files are an
// error.
func Load(path string) (*Config, error) {
	if path != "" {
		cfg := DefaultConfig()
		if err := loadFromFile(cfg, expandTilde(path)); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	for _, p := range Paths() {
		cfg := DefaultConfig()
		err := loadFromFile(cfg, p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return DefaultConfig(), nil
}

// loadFromFile reads a YAML config file and merges it into cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.DataDir = expandTilde(cfg.DataDir)
	cfg.PluginDir = expandTilde(cfg.PluginDir)
	cfg.StaticDir = expandTilde(cfg.StaticDir)
	return cfg.Validate()
}

// expandTilde expands ~ to the user's home directory.
func expandTilde(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// Validate checks the pacing settings.
func (c *Config) Validate() error {
	if c.IdleFPS <= 0 || c.ActiveFPS <= 0 {
		return fmt.Errorf("fps must be positive (idle %d, active %d)", c.IdleFPS, c.ActiveFPS)
	}
	if c.IdleFPS > c.ActiveFPS {
		return fmt.Errorf("idle_fps %d exceeds active_fps %d", c.IdleFPS, c.ActiveFPS)
	}
	if c.IdleTimeoutMs < 0 || c.PluginTimeoutMs < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

// IdleTimeout returns the idle timeout as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMs) * time.Millisecond
}

// PluginTimeout returns the plugin execution timeout as a duration.
func (c *Config) PluginTimeout() time.Duration {
	return time.Duration(c.PluginTimeoutMs) * time.Millisecond
}

// DBPath returns the profile database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "mukha.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0700)
}

// Save writes the config to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
