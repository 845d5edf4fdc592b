// Package probe infers node liveness from listening TCP ports.
//
// A reachable RPC port is the capability users actually care about, so
// liveness is defined behaviorally rather than by process-name matching,
// which is unreliable across platforms and when several node binaries run.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"
)

// Role identifies what a well-known port is used for.
type Role string

const (
	RoleHTTPRPC Role = "http-rpc"
	RoleWSRPC   Role = "ws-rpc"
	RoleAuthRPC Role = "auth-rpc"
)

// Default reth RPC ports.
const (
	DefaultHTTPRPCPort = 8545
	DefaultWSRPCPort   = 8546
	DefaultAuthRPCPort = 8551
)

// DefaultTimeout bounds a single connect attempt.
const DefaultTimeout = 300 * time.Millisecond

// Result is the outcome of probing one port.
type Result struct {
	Role      Role
	Port      int
	Reachable bool
}

// Target is a (role, port) pair to probe.
type Target struct {
	Role Role
	Port int
}

// DefaultTargets returns the standard reth RPC ports.
func DefaultTargets() []Target {
	return []Target{
		{Role: RoleHTTPRPC, Port: DefaultHTTPRPCPort},
		{Role: RoleWSRPC, Port: DefaultWSRPCPort},
		{Role: RoleAuthRPC, Port: DefaultAuthRPCPort},
	}
}

// Prober checks whether localhost TCP ports accept connections.
type Prober struct {
	host    string
	timeout time.Duration
	logger  *slog.Logger
}

// Config configures a Prober.
type Config struct {
	// Host to probe. Defaults to 127.0.0.1.
	Host string

	// Timeout bounds each connect attempt.
	Timeout time.Duration

	// Logger for probe operations.
	Logger *slog.Logger
}

// New creates a Prober.
func New(cfg Config) *Prober {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Prober{
		host:    cfg.Host,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

// Probe reports whether the port accepts TCP connections.
//
// An unreachable port is a normal outcome, not an error. An error is
// returned only for transport-level setup failures (e.g. the socket could
// not be allocated); callers should degrade to an unknown state rather
// than treat it as fatal.
func (p *Prober) Probe(ctx context.Context, port int) (bool, error) {
	addr := net.JoinHostPort(p.host, fmt.Sprintf("%d", port))

	d := net.Dialer{Timeout: p.timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if isUnreachable(err) {
			return false, nil
		}
		return false, fmt.Errorf("probe %s: %w", addr, err)
	}
	conn.Close()
	return true, nil
}

// ClassifyPorts probes every target concurrently and returns one Result
// per target, in the same order. Each probe is individually bounded, so
// the whole call completes within roughly one timeout.
func (p *Prober) ClassifyPorts(ctx context.Context, targets []Target) ([]Result, error) {
	results := make([]Result, len(targets))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, t := range targets {
		wg.Add(1)
		go func(i int, t Target) {
			defer wg.Done()
			reachable, err := p.Probe(ctx, t.Port)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			results[i] = Result{Role: t.Role, Port: t.Port, Reachable: reachable}
		}(i, t)
	}
	wg.Wait()

	return results, firstErr
}

// AnyReachable reports whether at least one probed port accepted a
// connection.
func AnyReachable(results []Result) bool {
	for _, r := range results {
		if r.Reachable {
			return true
		}
	}
	return false
}

// isUnreachable classifies connect failures that simply mean "nothing is
// listening": refused connections, timeouts, and unreachable networks.
func isUnreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
