// Package nodeconfig reads and writes the node's own reth.toml, so the
// engine can surface and tune sync, peering, and pruning settings
// without owning them.
package nodeconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"
)

// RethConfig is the subset of reth.toml the engine understands. Every
// field is optional: absent sections are left to the node's defaults
// and round-trip untouched fields are simply omitted.
type RethConfig struct {
	Stages   StagesConfig   `toml:"stages,omitempty"`
	Peers    PeersConfig    `toml:"peers,omitempty"`
	Sessions SessionsConfig `toml:"sessions,omitempty"`
	Prune    PruneConfig    `toml:"prune,omitempty"`
}

// StagesConfig tunes the staged-sync pipeline.
type StagesConfig struct {
	Headers           *HeadersStageConfig   `toml:"headers,omitempty"`
	Bodies            *BodiesStageConfig    `toml:"bodies,omitempty"`
	SenderRecovery    *CommitThreshold      `toml:"sender_recovery,omitempty"`
	Execution         *ExecutionStageConfig `toml:"execution,omitempty"`
	AccountHashing    *HashingStageConfig   `toml:"account_hashing,omitempty"`
	StorageHashing    *HashingStageConfig   `toml:"storage_hashing,omitempty"`
	Merkle            *MerkleStageConfig    `toml:"merkle,omitempty"`
	TransactionLookup *TxLookupStageConfig  `toml:"transaction_lookup,omitempty"`
	ETL               *ETLStageConfig       `toml:"etl,omitempty"`
}

type HeadersStageConfig struct {
	DownloaderMaxConcurrentRequests *uint32 `toml:"downloader_max_concurrent_requests,omitempty"`
	DownloaderMinConcurrentRequests *uint32 `toml:"downloader_min_concurrent_requests,omitempty"`
	DownloaderMaxBufferedResponses  *uint32 `toml:"downloader_max_buffered_responses,omitempty"`
	DownloaderRequestLimit          *uint32 `toml:"downloader_request_limit,omitempty"`
	CommitThreshold                 *uint64 `toml:"commit_threshold,omitempty"`
}

type BodiesStageConfig struct {
	DownloaderRequestLimit               *uint32 `toml:"downloader_request_limit,omitempty"`
	DownloaderStreamBatchSize            *uint32 `toml:"downloader_stream_batch_size,omitempty"`
	DownloaderMaxBufferedBlocksSizeBytes *uint64 `toml:"downloader_max_buffered_blocks_size_bytes,omitempty"`
	DownloaderMinConcurrentRequests      *uint32 `toml:"downloader_min_concurrent_requests,omitempty"`
	DownloaderMaxConcurrentRequests      *uint32 `toml:"downloader_max_concurrent_requests,omitempty"`
}

type CommitThreshold struct {
	CommitThreshold *uint64 `toml:"commit_threshold,omitempty"`
}

type ExecutionStageConfig struct {
	MaxBlocks        *uint64 `toml:"max_blocks,omitempty"`
	MaxChanges       *uint64 `toml:"max_changes,omitempty"`
	MaxCumulativeGas *uint64 `toml:"max_cumulative_gas,omitempty"`
	MaxDuration      *string `toml:"max_duration,omitempty"`
}

type HashingStageConfig struct {
	CleanThreshold  *uint64 `toml:"clean_threshold,omitempty"`
	CommitThreshold *uint64 `toml:"commit_threshold,omitempty"`
}

type MerkleStageConfig struct {
	IncrementalThreshold *uint64 `toml:"incremental_threshold,omitempty"`
	RebuildThreshold     *uint64 `toml:"rebuild_threshold,omitempty"`
}

type TxLookupStageConfig struct {
	ChunkSize *uint64 `toml:"chunk_size,omitempty"`
}

type ETLStageConfig struct {
	FileSize *uint64 `toml:"file_size,omitempty"`
}

// PeersConfig tunes discovery and connection management.
type PeersConfig struct {
	TrustedNodes     []string              `toml:"trusted_nodes,omitempty"`
	TrustedNodesOnly *bool                 `toml:"trusted_nodes_only,omitempty"`
	MaxBackoffCount  *uint32               `toml:"max_backoff_count,omitempty"`
	BanDuration      *string               `toml:"ban_duration,omitempty"`
	ConnectionInfo   *ConnectionInfoConfig `toml:"connection_info,omitempty"`
}

type ConnectionInfoConfig struct {
	MaxOutbound                *uint32 `toml:"max_outbound,omitempty"`
	MaxInbound                 *uint32 `toml:"max_inbound,omitempty"`
	MaxConcurrentOutboundDials *uint32 `toml:"max_concurrent_outbound_dials,omitempty"`
}

type SessionsConfig struct {
	SessionCommandBuffer *uint32 `toml:"session_command_buffer,omitempty"`
	SessionEventBuffer   *uint32 `toml:"session_event_buffer,omitempty"`
}

// PruneConfig tunes history pruning.
type PruneConfig struct {
	BlockInterval *uint64        `toml:"block_interval,omitempty"`
	Segments      *PruneSegments `toml:"segments,omitempty"`
}

type PruneSegments struct {
	SenderRecovery *string        `toml:"sender_recovery,omitempty"`
	Receipts       *PruneDistance `toml:"receipts,omitempty"`
	AccountHistory *PruneDistance `toml:"account_history,omitempty"`
	StorageHistory *PruneDistance `toml:"storage_history,omitempty"`
}

type PruneDistance struct {
	Distance *uint64 `toml:"distance,omitempty"`
}

// DefaultDataDir returns the platform's default reth data directory.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "reth")
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "reth")
		}
		return filepath.Join(home, ".local", "share", "reth")
	default:
		return filepath.Join(home, ".reth")
	}
}

// candidatePaths lists where reth.toml may live, network-specific
// directories before the data dir root.
func candidatePaths(dataDir string, networks ...string) []string {
	if len(networks) == 0 {
		networks = []string{"mainnet", "sepolia", "holesky"}
	}
	paths := make([]string, 0, len(networks)+1)
	for _, n := range networks {
		paths = append(paths, filepath.Join(dataDir, n, "reth.toml"))
	}
	return append(paths, filepath.Join(dataDir, "reth.toml"))
}

// Load finds and parses reth.toml under dataDir, preferring the given
// networks' subdirectories. A missing file is not an error: the zero
// config and an empty path are returned.
func Load(dataDir string, networks ...string) (*RethConfig, string, error) {
	var lastErr error
	for _, path := range candidatePaths(dataDir, networks...) {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var cfg RethConfig
		if err := toml.Unmarshal(data, &cfg); err != nil {
			lastErr = fmt.Errorf("failed to parse %s: %w", path, err)
			continue
		}
		return &cfg, path, nil
	}

	if lastErr != nil {
		return nil, "", lastErr
	}
	return &RethConfig{}, "", nil
}

// Save writes the config back to path.
func Save(cfg *RethConfig, path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
