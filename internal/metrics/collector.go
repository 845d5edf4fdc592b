package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Well-known reth series the collector always tracks.
const (
	seriesPeers       = "reth_network_connected_peers"
	seriesBlockHeight = "reth_blockchain_tree_canonical_chain_height"
	seriesMemory      = "reth_process_resident_memory_bytes"
	seriesGasPerSec   = "reth_sync_execution_gas_per_second"
	seriesDownloads   = "reth_consensus_engine_beacon_active_block_downloads"
	seriesTxPool      = "reth_transaction_pool_transactions"
)

const bytesPerMB = 1 << 20

// Collector polls the node's Prometheus endpoint and maintains bounded
// histories for the charted series.
type Collector struct {
	url        string
	httpClient *http.Client

	Peers       *History
	BlockHeight *History
	Memory      *History
	TxPool      *History
	Downloads   *History
	SyncPercent *History

	mu     sync.RWMutex
	custom map[string]*History
}

// NewCollector creates a collector for the given metrics endpoint,
// typically http://127.0.0.1:9001.
func NewCollector(url string) *Collector {
	return &Collector{
		url:        url,
		httpClient: &http.Client{Timeout: 5 * time.Second},

		Peers:       NewHistory("Connected Peers", "peers"),
		BlockHeight: NewHistory("Block Height", "blocks"),
		Memory:      NewHistory("Memory Usage", "MB"),
		TxPool:      NewHistory("TX Pool Size", "txs"),
		Downloads:   NewHistory("Active Downloads", "blocks"),
		SyncPercent: NewHistory("Sync Progress", "%"),

		custom: make(map[string]*History),
	}
}

// Track adds a custom series by raw metric name. Unit and display name
// are inferred from the name's suffix.
func (c *Collector) Track(metricName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.custom[metricName]; ok {
		return
	}
	c.custom[metricName] = NewHistory(displayName(metricName), inferUnit(metricName))
}

// Custom returns the tracked custom series keyed by raw metric name.
func (c *Collector) Custom() map[string]*History {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]*History, len(c.custom))
	for name, h := range c.custom {
		out[name] = h
	}
	return out
}

// Poll fetches the endpoint once and updates every series. An
// unreachable endpoint is an error the caller may log; the histories
// keep their last samples.
func (c *Collector) Poll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("metrics endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("metrics endpoint returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read metrics response: %w", err)
	}

	c.Update(ParseText(string(body)))
	return nil
}

// Update folds one parsed sample set into the histories.
func (c *Collector) Update(parsed map[string]float64) {
	if v, ok := parsed[seriesPeers]; ok {
		c.Peers.Add(v)
	}
	if v, ok := parsed[seriesBlockHeight]; ok {
		c.BlockHeight.Add(v)
	}
	if v, ok := parsed[seriesMemory]; ok {
		c.Memory.Add(v / bytesPerMB)
	}
	if v, ok := parsed[seriesTxPool]; ok {
		c.TxPool.Add(v)
	}
	if v, ok := parsed[seriesDownloads]; ok {
		c.Downloads.Add(v)
	}

	// Sync progress is derived: active execution or block downloads
	// mean the node is still syncing; a known height with no sync
	// activity reads as caught up.
	syncing := parsed[seriesGasPerSec] > 0 || parsed[seriesDownloads] > 0
	if syncing {
		c.SyncPercent.Add(0)
	} else if height, ok := c.BlockHeight.Latest(); ok && height > 0 {
		c.SyncPercent.Add(100)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, h := range c.custom {
		v, ok := parsed[name]
		if !ok {
			continue
		}
		if h.Unit == "MB" && strings.Contains(name, "_bytes") {
			v /= bytesPerMB
		}
		h.Add(v)
	}
}

func inferUnit(metricName string) string {
	switch {
	case strings.Contains(metricName, "_bytes"):
		return "MB"
	case strings.Contains(metricName, "_seconds"):
		return "s"
	case strings.Contains(metricName, "_percent"):
		return "%"
	case strings.Contains(metricName, "_count"), strings.Contains(metricName, "_total"):
		return "count"
	default:
		return ""
	}
}

func displayName(metricName string) string {
	words := strings.Split(metricName, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
