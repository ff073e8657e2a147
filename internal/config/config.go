// Package config loads the layered configuration for the ARO compiler and
// its serve daemon: hardcoded defaults, a user-global config file, a
// project-local config file, and environment variable overrides, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every configurable knob of an ARO compile or serve run.
type Config struct {
	Version int               `yaml:"version" json:"version"`
	Paths   PathsConfig       `yaml:"paths" json:"paths"`
	Pool    PoolConfig        `yaml:"pool" json:"pool"`
	Event   EventConfig       `yaml:"event" json:"event"`
	Server  ServerConfig      `yaml:"server" json:"server"`
	Logging LoggingConfig     `yaml:"logging" json:"logging"`
}

// PathsConfig locates the inputs a compile or serve run consumes.
type PathsConfig struct {
	// ProgramPath is the analyzed-program JSON file a compile run reads.
	ProgramPath string `yaml:"program_path" json:"program_path"`
	// OutputPath is where the generated IR is written; "-" means stdout.
	OutputPath string `yaml:"output_path" json:"output_path"`
	// OpenAPIPath is the embedded OpenAPI document routes are matched
	// against.
	OpenAPIPath string `yaml:"openapi_path" json:"openapi_path"`
}

// PoolConfig holds the compiled-execution pool setting. action.NewPool
// does not read it: the pool it builds always has 4 × runtime.NumCPU()
// slots.
type PoolConfig struct {
	// Multiplier scales runtime.NumCPU() in Size. Default: 4.
	Multiplier int `yaml:"multiplier" json:"multiplier"`
}

// Size returns the configured pool capacity for the current machine.
func (p PoolConfig) Size() int {
	if p.Multiplier <= 0 {
		return 4 * runtime.NumCPU()
	}
	return p.Multiplier * runtime.NumCPU()
}

// EventConfig holds the event flush timeout setting and configures the
// optional durable audit log.
type EventConfig struct {
	// FlushTimeout is loaded, merged and validated as non-negative.
	// Default: 30s. The event bus does not read it; PublishAndWait waits
	// for every handler with no time limit.
	FlushTimeout time.Duration `yaml:"flush_timeout" json:"flush_timeout"`
	// StoreEnabled turns on the optional sqlite-backed event audit log.
	StoreEnabled bool `yaml:"store_enabled" json:"store_enabled"`
	// StoreDriver selects the sqlite driver: "modernc" (pure Go, default)
	// or "mattn" (cgo).
	StoreDriver string `yaml:"store_driver" json:"store_driver"`
	// StorePath is the sqlite database file for the event store.
	StorePath string `yaml:"store_path" json:"store_path"`
}

// ServerConfig configures `aro serve`'s long-running process.
type ServerConfig struct {
	// Address is the HTTP bind address for the OpenAPI router.
	Address string `yaml:"address" json:"address"`
	// SocketPath is the control-plane Unix socket for status/reload/stop.
	SocketPath string `yaml:"socket_path" json:"socket_path"`
	// PIDPath stores the serving process's PID for `aro serve stop`.
	PIDPath string `yaml:"pid_path" json:"pid_path"`
	// LockPath is the flock single-instance guard file.
	LockPath string `yaml:"lock_path" json:"lock_path"`
	// WatchSpec enables fsnotify-based reload of the OpenAPI document.
	WatchSpec bool `yaml:"watch_spec" json:"watch_spec"`
}

// LoggingConfig controls the compiler/daemon's own structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	Debug bool   `yaml:"debug" json:"debug"`
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	home := homeDir()
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			OutputPath:  "-",
			OpenAPIPath: "openapi.yaml",
		},
		Pool: PoolConfig{Multiplier: 4},
		Event: EventConfig{
			FlushTimeout: 30 * time.Second,
			StoreEnabled: false,
			StoreDriver:  "modernc",
			StorePath:    filepath.Join(home, ".aro", "events.db"),
		},
		Server: ServerConfig{
			Address:    ":8080",
			SocketPath: filepath.Join(home, ".aro", "serve.sock"),
			PIDPath:    filepath.Join(home, ".aro", "serve.pid"),
			LockPath:   filepath.Join(home, ".aro", "serve.lock"),
			WatchSpec:  true,
		},
		Logging: LoggingConfig{
			Level: "info",
			Debug: false,
		},
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return home
}

// GetUserConfigPath returns the path to the user/global configuration
// file, honoring XDG_CONFIG_HOME when set.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "aro", "config.yaml")
	}
	return filepath.Join(homeDir(), ".config", "aro", "config.yaml")
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load builds a Config by applying, in order of increasing precedence:
// defaults, the user-global config file, the project-local config file
// (.aro.yaml/.aro.yml under dir), and ARO_* environment variables.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("load user config from %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".aro.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}
	ymlPath := filepath.Join(dir, ".aro.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields of other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Paths.ProgramPath != "" {
		c.Paths.ProgramPath = other.Paths.ProgramPath
	}
	if other.Paths.OutputPath != "" {
		c.Paths.OutputPath = other.Paths.OutputPath
	}
	if other.Paths.OpenAPIPath != "" {
		c.Paths.OpenAPIPath = other.Paths.OpenAPIPath
	}
	if other.Pool.Multiplier != 0 {
		c.Pool.Multiplier = other.Pool.Multiplier
	}
	if other.Event.FlushTimeout != 0 {
		c.Event.FlushTimeout = other.Event.FlushTimeout
	}
	if other.Event.StoreDriver != "" {
		c.Event.StoreDriver = other.Event.StoreDriver
	}
	if other.Event.StorePath != "" {
		c.Event.StorePath = other.Event.StorePath
	}
	c.Event.StoreEnabled = c.Event.StoreEnabled || other.Event.StoreEnabled
	if other.Server.Address != "" {
		c.Server.Address = other.Server.Address
	}
	if other.Server.SocketPath != "" {
		c.Server.SocketPath = other.Server.SocketPath
	}
	if other.Server.PIDPath != "" {
		c.Server.PIDPath = other.Server.PIDPath
	}
	if other.Server.LockPath != "" {
		c.Server.LockPath = other.Server.LockPath
	}
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	c.Logging.Debug = c.Logging.Debug || other.Logging.Debug
}

// applyEnvOverrides applies ARO_* environment variable overrides, the
// highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ARO_OPENAPI_PATH"); v != "" {
		c.Paths.OpenAPIPath = v
	}
	if v := os.Getenv("ARO_OUTPUT_PATH"); v != "" {
		c.Paths.OutputPath = v
	}
	if v := os.Getenv("ARO_POOL_MULTIPLIER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pool.Multiplier = n
		}
	}
	if v := os.Getenv("ARO_SERVER_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("ARO_EVENT_STORE_ENABLED"); v != "" {
		c.Event.StoreEnabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("ARO_EVENT_STORE_DRIVER"); v != "" {
		c.Event.StoreDriver = v
	}
	if v := os.Getenv("ARO_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ARO_DEBUG"); v != "" {
		c.Logging.Debug = strings.EqualFold(v, "true") || v == "1"
	}
}

// Validate rejects a Config with values that would break compilation or
// serving.
func (c *Config) Validate() error {
	if c.Pool.Multiplier < 0 {
		return fmt.Errorf("pool.multiplier must be non-negative, got %d", c.Pool.Multiplier)
	}
	if c.Event.FlushTimeout < 0 {
		return fmt.Errorf("event.flush_timeout must be non-negative, got %s", c.Event.FlushTimeout)
	}
	if c.Event.StoreDriver != "modernc" && c.Event.StoreDriver != "mattn" {
		return fmt.Errorf("event.store_driver must be 'modernc' or 'mattn', got %q", c.Event.StoreDriver)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// FindProjectRoot walks up from startDir looking for a .git directory or
// an .aro.yaml/.aro.yml file, returning the first directory found, or
// startDir (made absolute) if neither is found before the filesystem
// root.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	dir := absDir
	for {
		if dirExists(filepath.Join(dir, ".git")) {
			return dir, nil
		}
		if fileExists(filepath.Join(dir, ".aro.yaml")) || fileExists(filepath.Join(dir, ".aro.yml")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return absDir, nil
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
