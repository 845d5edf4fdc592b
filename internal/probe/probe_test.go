package probe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen opens a TCP listener on an ephemeral port and returns its port.
func listen(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return ln, ln.Addr().(*net.TCPAddr).Port
}

// closedPort returns a port that was just released and is very unlikely
// to be reused before the test probes it.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func TestProbeReachable(t *testing.T) {
	_, port := listen(t)

	p := New(Config{Timeout: 500 * time.Millisecond})
	reachable, err := p.Probe(context.Background(), port)
	require.NoError(t, err)
	assert.True(t, reachable)
}

func TestProbeUnreachableIsNotAnError(t *testing.T) {
	port := closedPort(t)

	p := New(Config{Timeout: 500 * time.Millisecond})
	reachable, err := p.Probe(context.Background(), port)
	require.NoError(t, err)
	assert.False(t, reachable)
}

func TestClassifyPorts(t *testing.T) {
	_, open := listen(t)
	closed := closedPort(t)

	p := New(Config{Timeout: 500 * time.Millisecond})
	targets := []Target{
		{Role: RoleHTTPRPC, Port: open},
		{Role: RoleWSRPC, Port: closed},
	}

	results, err := p.ClassifyPorts(context.Background(), targets)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, RoleHTTPRPC, results[0].Role)
	assert.True(t, results[0].Reachable)
	assert.Equal(t, RoleWSRPC, results[1].Role)
	assert.False(t, results[1].Reachable)
}

func TestClassifyPortsBounded(t *testing.T) {
	// A short timeout must bound the whole classification pass even when
	// every port is silent.
	p := New(Config{Timeout: 200 * time.Millisecond})

	start := time.Now()
	_, err := p.ClassifyPorts(context.Background(), DefaultTargets())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestAnyReachable(t *testing.T) {
	assert.False(t, AnyReachable(nil))
	assert.False(t, AnyReachable([]Result{{Reachable: false}}))
	assert.True(t, AnyReachable([]Result{{Reachable: false}, {Reachable: true}}))
}

func TestDefaultTargets(t *testing.T) {
	targets := DefaultTargets()
	require.Len(t, targets, 3)
	assert.Equal(t, 8545, targets[0].Port)
	assert.Equal(t, 8546, targets[1].Port)
	assert.Equal(t, 8551, targets[2].Port)
}
