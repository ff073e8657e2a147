// Package daemon implements `aro serve`'s long-running control plane: a
// Unix-socket JSON-RPC server for status/reload/stop, a PID file, and a
// flock-based single-instance guard, fronting the action registry, event
// bus, and OpenAPI router that actually serve requests.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds configuration for the serve control plane.
type Config struct {
	// SocketPath is the Unix domain socket path for the control plane.
	// Default: ~/.aro/serve.sock
	SocketPath string

	// PIDPath is the file path storing the serving process's PID.
	// Default: ~/.aro/serve.pid
	PIDPath string

	// LockPath is the flock single-instance guard file.
	// Default: ~/.aro/serve.lock
	LockPath string

	// Timeout is the maximum duration for a control-plane round trip.
	// Default: 30s
	Timeout time.Duration

	// ShutdownGracePeriod is the time to wait for in-flight requests to
	// finish during a graceful stop.
	// Default: 10s
	ShutdownGracePeriod time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	aroDir := filepath.Join(home, ".aro")

	return Config{
		SocketPath:          filepath.Join(aroDir, "serve.sock"),
		PIDPath:             filepath.Join(aroDir, "serve.pid"),
		LockPath:            filepath.Join(aroDir, "serve.lock"),
		Timeout:             30 * time.Second,
		ShutdownGracePeriod: 10 * time.Second,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket path cannot be empty")
	}
	if c.PIDPath == "" {
		return fmt.Errorf("PID path cannot be empty")
	}
	if c.LockPath == "" {
		return fmt.Errorf("lock path cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ShutdownGracePeriod <= 0 {
		return fmt.Errorf("shutdown grace period must be positive")
	}
	return nil
}

// EnsureDir creates the directories backing the socket, PID, and lock
// paths if they don't already exist.
func (c Config) EnsureDir() error {
	for _, p := range []string{c.SocketPath, c.PIDPath, c.LockPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", p, err)
		}
	}
	return nil
}
