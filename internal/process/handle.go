// Package process wraps the two ways this engine can relate to a node
// process: one it spawned and exclusively owns, or one it merely
// detected running behind a reachable port.
package process

import (
	"context"
	"errors"
)

// Kind distinguishes handle ownership.
type Kind string

const (
	// KindOwned is a process this engine spawned and may terminate.
	KindOwned Kind = "owned"

	// KindDetected is an externally started process inferred from a
	// reachable port. The relationship is strictly read-only.
	KindDetected Kind = "detected"
)

// ErrNotOwned is returned when terminate is attempted on a detected
// process. Reconciliation logic must make this call unreachable; seeing
// it at runtime is a defect, not a recoverable condition.
var ErrNotOwned = errors.New("process is not owned by this engine")

// ErrNoExitStatus is returned when an exit status is requested for a
// process whose exit cannot be observed.
var ErrNoExitStatus = errors.New("exit status unavailable")

// Handle is the capability surface over a node process.
type Handle interface {
	// Kind reports how this handle relates to the process.
	Kind() Kind

	// PID returns the process ID if known. Detection may not resolve a
	// PID on all platforms.
	PID() (int, bool)

	// IsAlive reports whether the process appears to be running. For
	// detected processes this degrades to "port still reachable".
	IsAlive(ctx context.Context) bool

	// ExitStatus returns the exit code once the process has exited.
	// Only an owned handle can ever observe an exit.
	ExitStatus() (code int, exited bool)

	// Terminate stops the process: graceful signal first, forceful kill
	// after the grace period. Always fails with ErrNotOwned for a
	// detected process.
	Terminate(ctx context.Context) error
}
