package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/nodeward/nodeward/internal/logs"
	"github.com/nodeward/nodeward/internal/probe"
	"github.com/nodeward/nodeward/internal/process"
)

// Instance is one managed node. All mutable state is written only by
// the instance's own polling pass and its explicit user operations; the
// UI sees copy-out snapshots.
type Instance struct {
	cfg     Config
	prober  *probe.Prober
	locator *logs.Locator
	buffer  *logs.RingBuffer
	logger  *slog.Logger

	mu        sync.Mutex
	desired   DesiredState
	observed  ObservedState
	ownership OwnershipKind
	handle    process.Handle
	logPath   string
	ports     []PortStatus
	startedAt time.Time
	lastError error
	updatedAt time.Time

	// tailMu serializes tailer reads with Close; the tailer touches the
	// file outside i.mu so a slow read cannot block snapshots.
	tailMu sync.Mutex
	tailer *logs.Tailer
}

// NewInstance creates an instance in the Unknown state. The first poll
// settles it.
func NewInstance(cfg Config, prober *probe.Prober, logger *slog.Logger) *Instance {
	if len(cfg.Ports) == 0 {
		cfg.Ports = probe.DefaultTargets()
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = DefaultStartupTimeout
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = process.DefaultGracePeriod
	}
	if cfg.BufferCapacity <= 0 {
		cfg.BufferCapacity = logs.DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Instance{
		cfg:       cfg,
		prober:    prober,
		locator:   &logs.Locator{},
		buffer:    logs.NewRingBuffer(cfg.BufferCapacity),
		logger:    logger.With("instance", cfg.ID),
		desired:   DesiredStopped,
		observed:  StateUnknown,
		ownership: OwnershipNone,
	}
}

// ID returns the caller-chosen identifier.
func (i *Instance) ID() string { return i.cfg.ID }

// Start spawns an owned node process. Valid only from Stopped, Crashed,
// or Unknown. A spawn failure is terminal for this call alone: the
// instance stays where it was and the user may retry.
func (i *Instance) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch i.observed {
	case StateStopped, StateCrashed, StateUnknown:
	default:
		if i.ownership == OwnershipOwned {
			return ErrAlreadyRunning
		}
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidState, i.observed)
	}

	// A startup-timeout crash keeps the owned handle because the process
	// may still be alive. Spawning over it would leak that process with
	// no way to stop it.
	if i.ownership == OwnershipOwned && i.handle != nil {
		if _, exited := i.handle.ExitStatus(); !exited {
			return fmt.Errorf("%w: previous node process is still alive, stop it first", ErrAlreadyRunning)
		}
		i.handle = nil
		i.ownership = OwnershipNone
	}

	args := process.NodeArgs(process.CommandOptions{
		Network:   i.cfg.Network,
		DataDir:   i.cfg.DataDir,
		LogDir:    i.cfg.LogDir,
		FullNode:  i.cfg.FullNode,
		ExtraArgs: i.cfg.ExtraArgs,
	})

	handle, err := process.Spawn(process.SpawnConfig{
		BinaryPath:  i.cfg.BinaryPath,
		Args:        args,
		WorkDir:     i.cfg.DataDir,
		GracePeriod: i.cfg.GracePeriod,
		Logger:      i.logger,
	})
	if err != nil {
		i.lastError = fmt.Errorf("spawn failed: %w", err)
		return i.lastError
	}

	i.handle = handle
	i.ownership = OwnershipOwned
	i.desired = DesiredRunning
	i.observed = StateStarting
	i.startedAt = time.Now()
	i.lastError = nil
	return nil
}

// Stop requests a graceful stop of an owned process. Rejected for a
// detected process: attach is read-only and this engine never kills a
// process it did not start.
func (i *Instance) Stop(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch i.ownership {
	case OwnershipOwned:
		i.desired = DesiredStopped
		i.observed = StateStopping
		handle := i.handle
		go func() {
			if err := handle.Terminate(context.Background()); err != nil {
				i.logger.Warn("terminate failed", "error", err)
			}
		}()
		return nil
	case OwnershipDetected:
		return process.ErrNotOwned
	default:
		return fmt.Errorf("%w: no process to stop", ErrInvalidState)
	}
}

// Detach drops a detected handle without touching the real process. The
// next reconciliation re-attaches if the port is still reachable, so
// detach is idempotent, not a leak; it only stops the UI from implying
// control it never had.
func (i *Instance) Detach() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch i.ownership {
	case OwnershipDetected:
		i.handle = nil
		i.ownership = OwnershipNone
		i.observed = StateUnknown
		return nil
	default:
		return fmt.Errorf("%w: detach requires a detected process", ErrInvalidState)
	}
}

// Orphan deliberately releases an owned process without stopping it,
// used when the user removes an instance but wants the node to keep
// running.
func (i *Instance) Orphan() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch i.ownership {
	case OwnershipOwned:
		i.handle = nil
		i.ownership = OwnershipNone
		i.observed = StateUnknown
		i.desired = DesiredStopped
		i.logger.Info("orphaned owned node process")
		return nil
	default:
		return fmt.Errorf("%w: orphan requires an owned process", ErrInvalidState)
	}
}

// Poll runs one reconciliation pass: probe, tail, exit status, then the
// pure reconcile step. Each suspension point is individually bounded,
// so one stalled check cannot delay the next pass indefinitely.
func (i *Instance) Poll(ctx context.Context) {
	// 1. Probe enabled ports.
	results, probeErr := i.prober.ClassifyPorts(ctx, i.cfg.Ports)
	ports := make([]PortStatus, len(results))
	for n, r := range results {
		ports[n] = PortStatus{Role: r.Role, Port: r.Port, Reachable: r.Reachable}
	}

	// 2. Tail the log file.
	tailErr := i.pollLogs()

	i.mu.Lock()
	defer i.mu.Unlock()

	// 3. Owned exit status.
	var exited bool
	var exitCode int
	if i.ownership == OwnershipOwned && i.handle != nil {
		exitCode, exited = i.handle.ExitStatus()
	}

	// 4. Pure reconciliation over this tick's observations.
	in := ReconcileInput{
		Desired:          i.desired,
		Observed:         i.observed,
		Ownership:        i.ownership,
		AnyPortReachable: probe.AnyReachable(results),
		ProbeFailed:      probeErr != nil,
		OwnedExited:      exited,
		OwnedExitCode:    exitCode,
		StartDeadlineExceeded: i.observed == StateStarting &&
			time.Since(i.startedAt) > i.cfg.StartupTimeout,
	}
	out := Reconcile(in)

	if out.Next != i.observed {
		i.logger.Debug("state transition", "from", i.observed, "to", out.Next)
	}
	i.observed = out.Next

	if out.ReleaseHandle {
		i.handle = nil
		i.ownership = OwnershipNone
	}
	if out.AttachDetected {
		port := firstReachable(results)
		i.handle = process.NewDetected(i.prober, port, -1)
		i.ownership = OwnershipDetected
		i.logger.Info("attached to externally running node", "port", port)
	}

	switch {
	case out.Failure != nil:
		i.lastError = out.Failure
	case probeErr != nil:
		i.lastError = fmt.Errorf("probe failed: %w", probeErr)
	case tailErr != nil:
		i.lastError = fmt.Errorf("log read failed: %w", tailErr)
	case i.observed == StateRunning || i.observed == StateExternallyRunning:
		// A healthy node sheds stale crash and probe annotations.
		i.lastError = nil
	}

	i.ports = ports
	i.updatedAt = time.Now()
}

// pollLogs resolves the active log file if needed and reads newly
// appended records. Called off the UI path; the read is bounded.
func (i *Instance) pollLogs() error {
	i.tailMu.Lock()
	defer i.tailMu.Unlock()

	path, ok := i.resolveLogPath()
	if !ok {
		// No log file yet is a legitimate state for a node that has not
		// started. Keep whatever tailer we have; rotation-in-progress
		// also lands here.
		if i.tailer == nil {
			return nil
		}
		_, err := i.tailer.Poll()
		return err
	}

	if i.tailer == nil {
		i.tailer = logs.NewTailer(path, logs.TailerConfig{
			Buffer:        i.buffer,
			BackfillLines: logs.DefaultBackfillLines,
			Logger:        i.logger,
		})
	} else if path != i.tailer.Path() {
		i.tailer.SetPath(path)
	}

	i.mu.Lock()
	i.logPath = path
	i.mu.Unlock()

	_, err := i.tailer.Poll()
	return err
}

// resolveLogPath computes candidate directories and picks the active
// log file. The spawn log directory takes precedence over the default
// locations when configured.
func (i *Instance) resolveLogPath() (string, bool) {
	var candidates []string
	if i.cfg.LogDir != "" {
		if i.cfg.Network != "" {
			candidates = append(candidates, filepath.Join(i.cfg.LogDir, i.cfg.Network))
		}
		candidates = append(candidates, i.cfg.LogDir)
	}
	candidates = append(candidates, i.locator.Resolve(i.cfg.DataDir, i.cfg.Network)...)
	return i.locator.PickActive(candidates)
}

// Snapshot returns an immutable copy of the instance's status with up
// to tail recent log records. Safe to call from any goroutine.
func (i *Instance) Snapshot(tail int) Status {
	i.mu.Lock()
	defer i.mu.Unlock()

	s := Status{
		ID:        i.cfg.ID,
		Desired:   i.desired,
		Observed:  i.observed,
		Ownership: i.ownership,
		LogPath:   i.logPath,
		UpdatedAt: i.updatedAt,
		Ports:     make([]PortStatus, len(i.ports)),
	}
	copy(s.Ports, i.ports)

	if i.handle != nil {
		if pid, ok := i.handle.PID(); ok {
			s.PID = pid
		}
	}
	if i.lastError != nil {
		s.LastError = i.lastError.Error()
	}
	if tail > 0 {
		s.Records = i.buffer.Last(tail)
	}
	return s
}

// Buffer exposes the instance's log ring buffer for read-only use.
func (i *Instance) Buffer() *logs.RingBuffer {
	return i.buffer
}

// Close releases the tailer's file handle. It never touches the node
// process: an owned node is expected to outlive the application unless
// the user explicitly stopped it.
func (i *Instance) Close() error {
	i.tailMu.Lock()
	defer i.tailMu.Unlock()
	if i.tailer != nil {
		return i.tailer.Close()
	}
	return nil
}

func firstReachable(results []probe.Result) int {
	for _, r := range results {
		if r.Reachable {
			return r.Port
		}
	}
	return 0
}
