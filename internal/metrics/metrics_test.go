package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExposition = `# HELP reth_network_connected_peers Connected peers
# TYPE reth_network_connected_peers gauge
reth_network_connected_peers 25
reth_blockchain_tree_canonical_chain_height 19000000
reth_process_resident_memory_bytes 2147483648
reth_transaction_pool_transactions 142
reth_sync_execution_gas_per_second 0
reth_consensus_engine_beacon_active_block_downloads 0
reth_db_table_size{table="Headers"} 1024
reth_db_table_size{table="Bodies"} 4096

malformed line without value-
`

func TestParseText(t *testing.T) {
	parsed := ParseText(sampleExposition)

	assert.Equal(t, 25.0, parsed["reth_network_connected_peers"])
	assert.Equal(t, 19000000.0, parsed["reth_blockchain_tree_canonical_chain_height"])

	// Labels are stripped; the last sample of a family wins.
	assert.Equal(t, 4096.0, parsed["reth_db_table_size"])

	// Comments and malformed lines are skipped.
	_, ok := parsed["#"]
	assert.False(t, ok)
}

func TestNamesSorted(t *testing.T) {
	names := Names("b_metric 1\na_metric 2\n")
	assert.Equal(t, []string{"a_metric", "b_metric"}, names)
}

func TestHistoryBounded(t *testing.T) {
	h := NewHistory("test", "")
	for i := 0; i < MaxDataPoints+50; i++ {
		h.Add(float64(i))
	}

	assert.Equal(t, MaxDataPoints, h.Len())

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, float64(MaxDataPoints+49), latest)

	// The oldest retained sample is the 51st added.
	points := h.Points()
	assert.Equal(t, float64(50), points[0].Value)
}

func TestHistoryMinMax(t *testing.T) {
	h := NewHistory("test", "")

	min, max := h.MinMax()
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 1.0, max)

	for _, v := range []float64{5, -2, 9, 3} {
		h.Add(v)
	}
	min, max = h.MinMax()
	assert.Equal(t, -2.0, min)
	assert.Equal(t, 9.0, max)
}

func TestCollectorUpdate(t *testing.T) {
	c := NewCollector("")
	c.Update(ParseText(sampleExposition))

	peers, ok := c.Peers.Latest()
	require.True(t, ok)
	assert.Equal(t, 25.0, peers)

	// Memory is converted to MB.
	mem, ok := c.Memory.Latest()
	require.True(t, ok)
	assert.Equal(t, 2048.0, mem)

	// Height known, no sync activity: caught up.
	sync, ok := c.SyncPercent.Latest()
	require.True(t, ok)
	assert.Equal(t, 100.0, sync)
}

func TestCollectorSyncInProgress(t *testing.T) {
	c := NewCollector("")
	c.Update(map[string]float64{
		"reth_blockchain_tree_canonical_chain_height":         100,
		"reth_sync_execution_gas_per_second":                  1e9,
		"reth_consensus_engine_beacon_active_block_downloads": 12,
	})

	sync, ok := c.SyncPercent.Latest()
	require.True(t, ok)
	assert.Equal(t, 0.0, sync)

	downloads, ok := c.Downloads.Latest()
	require.True(t, ok)
	assert.Equal(t, 12.0, downloads)
}

func TestCollectorCustomSeries(t *testing.T) {
	c := NewCollector("")
	c.Track("reth_db_freelist_bytes")
	c.Track("reth_db_freelist_bytes") // idempotent

	c.Update(map[string]float64{"reth_db_freelist_bytes": 2 * bytesPerMB})

	custom := c.Custom()
	require.Len(t, custom, 1)

	h := custom["reth_db_freelist_bytes"]
	require.NotNil(t, h)
	assert.Equal(t, "Reth Db Freelist Bytes", h.Name)
	assert.Equal(t, "MB", h.Unit)

	v, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
}

func TestCollectorPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleExposition))
	}))
	defer srv.Close()

	c := NewCollector(srv.URL)
	require.NoError(t, c.Poll(context.Background()))

	peers, ok := c.Peers.Latest()
	require.True(t, ok)
	assert.Equal(t, 25.0, peers)
}

func TestCollectorPollUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	c := NewCollector(url)
	assert.Error(t, c.Poll(context.Background()))
}
