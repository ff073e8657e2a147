package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotEmpty(t, cfg.SocketPath)
	assert.NotEmpty(t, cfg.PIDPath)
	assert.NotEmpty(t, cfg.LockPath)
	assert.Greater(t, cfg.Timeout, time.Duration(0))
	assert.Greater(t, cfg.ShutdownGracePeriod, time.Duration(0))
}

func TestDefaultConfig_PathsInAroDir(t *testing.T) {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expectedDir := filepath.Join(home, ".aro")
	assert.True(t, strings.HasPrefix(cfg.SocketPath, expectedDir))
	assert.True(t, strings.HasPrefix(cfg.PIDPath, expectedDir))
	assert.True(t, strings.HasPrefix(cfg.LockPath, expectedDir))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		errMsg  string
	}{
		{name: "valid default config", config: DefaultConfig(), wantErr: false},
		{
			name: "empty socket path",
			config: Config{
				SocketPath: "", PIDPath: "/tmp/t.pid", LockPath: "/tmp/t.lock",
				Timeout: 30 * time.Second, ShutdownGracePeriod: 10 * time.Second,
			},
			wantErr: true, errMsg: "socket path",
		},
		{
			name: "empty PID path",
			config: Config{
				SocketPath: "/tmp/t.sock", PIDPath: "", LockPath: "/tmp/t.lock",
				Timeout: 30 * time.Second, ShutdownGracePeriod: 10 * time.Second,
			},
			wantErr: true, errMsg: "PID path",
		},
		{
			name: "empty lock path",
			config: Config{
				SocketPath: "/tmp/t.sock", PIDPath: "/tmp/t.pid", LockPath: "",
				Timeout: 30 * time.Second, ShutdownGracePeriod: 10 * time.Second,
			},
			wantErr: true, errMsg: "lock path",
		},
		{
			name: "zero timeout",
			config: Config{
				SocketPath: "/tmp/t.sock", PIDPath: "/tmp/t.pid", LockPath: "/tmp/t.lock",
				Timeout: 0, ShutdownGracePeriod: 10 * time.Second,
			},
			wantErr: true, errMsg: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_EnsureDir(t *testing.T) {
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "nested", "deeply")

	cfg := Config{
		SocketPath:          filepath.Join(nestedDir, "serve.sock"),
		PIDPath:             filepath.Join(nestedDir, "serve.pid"),
		LockPath:            filepath.Join(nestedDir, "serve.lock"),
		Timeout:             30 * time.Second,
		ShutdownGracePeriod: 10 * time.Second,
	}

	_, err := os.Stat(nestedDir)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, cfg.EnsureDir())

	info, err := os.Stat(nestedDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
