package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 300*time.Millisecond, cfg.ProbeTimeout)
	assert.Equal(t, 30*time.Second, cfg.StartupTimeout)
	assert.Equal(t, 10*time.Second, cfg.GracePeriod)
	assert.Equal(t, 2000, cfg.BufferCapacity)
	assert.Equal(t, "mainnet", cfg.Network)
	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.CacheDir)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodeward.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
network = "sepolia"
poll_interval = "5s"
buffer_capacity = 500
full_node = true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sepolia", cfg.Network)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 500, cfg.BufferCapacity)
	assert.True(t, cfg.FullNode)

	// Untouched keys keep defaults.
	assert.Equal(t, 300*time.Millisecond, cfg.ProbeTimeout)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ProbeTimeout = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.BufferCapacity = 0
	assert.Error(t, cfg.Validate())
}

func TestDerivedPaths(t *testing.T) {
	cfg := &Config{CacheDir: "/cache/nodeward"}
	assert.Equal(t, "/cache/nodeward/registry.db", cfg.RegistryPath())
	assert.Equal(t, "/cache/nodeward/logs", cfg.LogDir())
}
