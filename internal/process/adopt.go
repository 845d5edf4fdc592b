package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"syscall"
	"time"
)

// PIDAlive reports whether a process with the given pid exists. Signal
// zero performs the existence check without touching the process.
func PIDAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return errors.Is(err, syscall.EPERM)
}

// TerminatePID gracefully stops a process recorded as spawned by a
// previous session: SIGTERM, wait up to grace, then SIGKILL. Callers
// must only pass pids this application persisted at spawn time; this is
// never used on detected processes.
func TerminatePID(ctx context.Context, pid int, grace time.Duration, logger *slog.Logger) error {
	if pid <= 0 {
		return fmt.Errorf("terminate: invalid pid %d", pid)
	}
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	if logger == nil {
		logger = slog.Default()
	}

	if !PIDAlive(pid) {
		return nil
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return fmt.Errorf("terminate pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(grace)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			syscall.Kill(pid, syscall.SIGKILL)
			return ctx.Err()
		case <-ticker.C:
			if !PIDAlive(pid) {
				return nil
			}
			if time.Now().After(deadline) {
				logger.Warn("process did not exit gracefully, sending SIGKILL", "pid", pid)
				syscall.Kill(pid, syscall.SIGKILL)
				return nil
			}
		}
	}
}
