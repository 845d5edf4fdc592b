package process

import (
	"context"

	"github.com/nodeward/nodeward/internal/probe"
)

// DetectedHandle references an externally started process inferred from
// a reachable port. It owns nothing at the OS level: liveness degrades
// to a port probe, the exit status is never observable, and terminate is
// a hard contract violation.
type DetectedHandle struct {
	prober *probe.Prober
	port   int
	pid    int
	hasPID bool
}

// NewDetected creates a handle for a process detected on the given
// port. pid may be negative when detection could not resolve one.
func NewDetected(prober *probe.Prober, port int, pid int) *DetectedHandle {
	return &DetectedHandle{
		prober: prober,
		port:   port,
		pid:    pid,
		hasPID: pid > 0,
	}
}

// Kind implements Handle.
func (h *DetectedHandle) Kind() Kind { return KindDetected }

// PID implements Handle. Best-effort: detection may not resolve a PID
// on all platforms.
func (h *DetectedHandle) PID() (int, bool) { return h.pid, h.hasPID }

// Port returns the port the process was detected on.
func (h *DetectedHandle) Port() int { return h.port }

// IsAlive implements Handle: the process is considered alive as long as
// its port is still reachable.
func (h *DetectedHandle) IsAlive(ctx context.Context) bool {
	reachable, err := h.prober.Probe(ctx, h.port)
	return err == nil && reachable
}

// ExitStatus implements Handle. A detected process's exit can never be
// observed.
func (h *DetectedHandle) ExitStatus() (int, bool) { return 0, false }

// Terminate implements Handle and always fails: this engine never kills
// a process it did not start.
func (h *DetectedHandle) Terminate(ctx context.Context) error {
	return ErrNotOwned
}

var _ Handle = (*DetectedHandle)(nil)
