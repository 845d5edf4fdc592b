// Package supervisor owns the lifecycle state machine for managed node
// instances: spawn, stop, attach to externally running nodes, and fold
// probe/tail/exit observations into snapshots the UI can poll.
package supervisor

import (
	"errors"
	"fmt"
	"time"

	"github.com/nodeward/nodeward/internal/logs"
	"github.com/nodeward/nodeward/internal/probe"
)

// DesiredState is what the user asked for. Set only by explicit action.
type DesiredState string

const (
	DesiredStopped DesiredState = "Stopped"
	DesiredRunning DesiredState = "Running"
)

// ObservedState is derived from observations each reconciliation pass,
// never set directly by a user action.
type ObservedState string

const (
	StateUnknown           ObservedState = "Unknown"
	StateStarting          ObservedState = "Starting"
	StateRunning           ObservedState = "Running"
	StateStopping          ObservedState = "Stopping"
	StateStopped           ObservedState = "Stopped"
	StateCrashed           ObservedState = "Crashed"
	StateExternallyRunning ObservedState = "ExternallyRunning"
)

// OwnershipKind is the tag of the ownership sum type. Every call site
// that could terminate a process switches over it exhaustively, which is
// what makes "never kill a detected process" checkable rather than
// conventional.
type OwnershipKind string

const (
	OwnershipNone     OwnershipKind = "None"
	OwnershipOwned    OwnershipKind = "Owned"
	OwnershipDetected OwnershipKind = "Detected"
)

// PortStatus is one probed port in a snapshot.
type PortStatus struct {
	Role      probe.Role `json:"role"`
	Port      int        `json:"port"`
	Reachable bool       `json:"reachable"`
}

// Status is an immutable point-in-time copy of an instance's observable
// state. The UI reads one per redraw; it never blocks the polling loop.
type Status struct {
	ID        string        `json:"id"`
	Desired   DesiredState  `json:"desired"`
	Observed  ObservedState `json:"observed"`
	Ownership OwnershipKind `json:"ownership"`
	PID       int           `json:"pid,omitempty"`
	Ports     []PortStatus  `json:"ports"`
	LogPath   string        `json:"logPath,omitempty"`
	LastError string        `json:"lastError,omitempty"`
	Records   []logs.Record `json:"records,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Config describes one managed node instance.
type Config struct {
	// ID is the caller-chosen stable identifier, typically the network
	// name.
	ID string

	// Network is the chain name (mainnet, sepolia, ...).
	Network string

	// DataDir is the node's data directory, from the configuration
	// collaborator.
	DataDir string

	// BinaryPath is the resolved executable, from the installer
	// collaborator.
	BinaryPath string

	// Ports are the enabled RPC ports to probe. Defaults to the
	// standard reth ports.
	Ports []probe.Target

	// LogDir is where an owned node is told to write its log files.
	LogDir string

	// StartupTimeout bounds how long Starting may wait for a port to
	// become reachable before the instance is marked Crashed.
	StartupTimeout time.Duration

	// GracePeriod bounds graceful shutdown before SIGKILL.
	GracePeriod time.Duration

	// BufferCapacity sizes the recent-log ring buffer.
	BufferCapacity int

	// FullNode runs the node with full-node pruning.
	FullNode bool

	// ExtraArgs are appended to the spawn command line.
	ExtraArgs []string
}

// DefaultStartupTimeout is how long a started node may take to open a
// port before being declared crashed.
const DefaultStartupTimeout = 30 * time.Second

// Supervisor errors.
var (
	// ErrInvalidState rejects an operation not valid in the current
	// lifecycle state.
	ErrInvalidState = errors.New("operation not valid in current state")

	// ErrAlreadyRunning rejects start when the instance already runs.
	ErrAlreadyRunning = errors.New("node is already running")

	// ErrStartupTimeout marks a node that never opened a port.
	ErrStartupTimeout = errors.New("node did not become reachable before startup timeout")

	// ErrNotFound is returned for an unknown instance id.
	ErrNotFound = errors.New("instance not found")
)

// CrashError reports an owned process exiting when nobody asked it to.
type CrashError struct {
	ExitCode int
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("node process exited unexpectedly with code %d", e.ExitCode)
}
