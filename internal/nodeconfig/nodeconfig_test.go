package nodeconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[stages.headers]
downloader_max_concurrent_requests = 100
commit_threshold = 10000

[stages.execution]
max_blocks = 500000
max_duration = "10m"

[peers]
trusted_nodes_only = false
max_backoff_count = 5

[peers.connection_info]
max_outbound = 100
max_inbound = 30

[prune]
block_interval = 5

[prune.segments.receipts]
distance = 100000
`

func TestLoadNetworkSpecific(t *testing.T) {
	dataDir := t.TempDir()
	dir := filepath.Join(dataDir, "mainnet")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reth.toml"), []byte(sampleConfig), 0o644))

	cfg, path, err := Load(dataDir, "mainnet")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reth.toml"), path)

	require.NotNil(t, cfg.Stages.Headers)
	assert.EqualValues(t, 100, *cfg.Stages.Headers.DownloaderMaxConcurrentRequests)
	assert.EqualValues(t, 10000, *cfg.Stages.Headers.CommitThreshold)

	require.NotNil(t, cfg.Stages.Execution)
	assert.EqualValues(t, 500000, *cfg.Stages.Execution.MaxBlocks)
	assert.Equal(t, "10m", *cfg.Stages.Execution.MaxDuration)

	require.NotNil(t, cfg.Peers.ConnectionInfo)
	assert.EqualValues(t, 100, *cfg.Peers.ConnectionInfo.MaxOutbound)

	require.NotNil(t, cfg.Prune.Segments)
	require.NotNil(t, cfg.Prune.Segments.Receipts)
	assert.EqualValues(t, 100000, *cfg.Prune.Segments.Receipts.Distance)
}

func TestLoadPrefersNetworkOverRoot(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "sepolia"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "sepolia", "reth.toml"),
		[]byte("[prune]\nblock_interval = 7\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "reth.toml"),
		[]byte("[prune]\nblock_interval = 9\n"), 0o644))

	cfg, path, err := Load(dataDir, "sepolia")
	require.NoError(t, err)
	assert.Contains(t, path, "sepolia")
	assert.EqualValues(t, 7, *cfg.Prune.BlockInterval)
}

func TestLoadMissingIsNotAnError(t *testing.T) {
	cfg, path, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.NotNil(t, cfg)
	assert.Nil(t, cfg.Stages.Headers)
}

func TestLoadParseError(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "reth.toml"),
		[]byte("not [valid toml"), 0o644))

	_, _, err := Load(dataDir)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	interval := uint64(5)
	distance := uint64(100000)
	cfg := &RethConfig{
		Prune: PruneConfig{
			BlockInterval: &interval,
			Segments: &PruneSegments{
				Receipts: &PruneDistance{Distance: &distance},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "reth.toml")
	require.NoError(t, Save(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got RethConfig
	require.NoError(t, toml.Unmarshal(data, &got))
	assert.EqualValues(t, 5, *got.Prune.BlockInterval)
	assert.EqualValues(t, 100000, *got.Prune.Segments.Receipts.Distance)
}

func TestSaveEmptyPath(t *testing.T) {
	assert.Error(t, Save(&RethConfig{}, ""))
}
