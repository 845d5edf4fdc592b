package process

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// DefaultGracePeriod is how long Terminate waits after SIGTERM before
// escalating to SIGKILL.
const DefaultGracePeriod = 10 * time.Second

// SpawnConfig describes a process to spawn.
type SpawnConfig struct {
	// BinaryPath is the resolved executable, supplied by the installer
	// collaborator. Never discovered here.
	BinaryPath string

	// Args are the command arguments.
	Args []string

	// WorkDir is the working directory. Defaults to the current one.
	WorkDir string

	// LogPath receives the process's stdout and stderr, append-only.
	LogPath string

	// Env is extra environment, appended to the parent's.
	Env map[string]string

	// GracePeriod bounds graceful shutdown before SIGKILL.
	GracePeriod time.Duration

	// Logger for spawn and termination events.
	Logger *slog.Logger
}

// OwnedHandle wraps a process spawned by this engine. It exclusively
// owns the OS handle and the log file writer.
type OwnedHandle struct {
	cmd         *exec.Cmd
	pid         int
	gracePeriod time.Duration
	logger      *slog.Logger

	done     chan struct{}
	exitCode int
	exitErr  error
	mu       sync.RWMutex
}

// Spawn starts the configured process in the background. The spawned
// node is expected to outlive this application; nothing here ties the
// child's lifetime to ours.
func Spawn(cfg SpawnConfig) (*OwnedHandle, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("spawn: no binary path specified")
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	info, err := os.Stat(cfg.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("spawn: binary not found at %s: %w", cfg.BinaryPath, err)
	}
	if info.Mode()&0o111 == 0 {
		return nil, fmt.Errorf("spawn: binary at %s is not executable", cfg.BinaryPath)
	}

	var logFile *os.File
	if cfg.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
			return nil, fmt.Errorf("spawn: create log dir: %w", err)
		}
		logFile, err = os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("spawn: open log file: %w", err)
		}
	}

	cmd := exec.Command(cfg.BinaryPath, cfg.Args...)
	cmd.Dir = cfg.WorkDir
	if logFile != nil {
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}
	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("spawn: failed to start %s: %w", cfg.BinaryPath, err)
	}

	h := &OwnedHandle{
		cmd:         cmd,
		pid:         cmd.Process.Pid,
		gracePeriod: cfg.GracePeriod,
		logger:      cfg.Logger,
		done:        make(chan struct{}),
	}

	cfg.Logger.Info("spawned node process",
		"binary", cfg.BinaryPath,
		"pid", h.pid,
		"logPath", cfg.LogPath)

	go func() {
		err := cmd.Wait()
		if logFile != nil {
			logFile.Close()
		}

		code := 0
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				code = exitErr.ExitCode()
			} else {
				code = -1
			}
		}

		h.mu.Lock()
		h.exitCode = code
		h.exitErr = err
		h.mu.Unlock()
		close(h.done)

		cfg.Logger.Info("node process exited", "pid", h.pid, "exitCode", code)
	}()

	return h, nil
}

// Kind implements Handle.
func (h *OwnedHandle) Kind() Kind { return KindOwned }

// PID implements Handle.
func (h *OwnedHandle) PID() (int, bool) { return h.pid, true }

// IsAlive implements Handle.
func (h *OwnedHandle) IsAlive(ctx context.Context) bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// ExitStatus implements Handle.
func (h *OwnedHandle) ExitStatus() (int, bool) {
	select {
	case <-h.done:
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.exitCode, true
	default:
		return 0, false
	}
}

// Terminate sends SIGTERM and escalates to SIGKILL after the grace
// period. Returns once the process has exited or the context is done.
func (h *OwnedHandle) Terminate(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	default:
	}

	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// The process may have exited between the check and the signal.
		select {
		case <-h.done:
			return nil
		default:
			return fmt.Errorf("terminate pid %d: %w", h.pid, err)
		}
	}

	select {
	case <-h.done:
		return nil
	case <-time.After(h.gracePeriod):
		h.logger.Warn("process did not exit gracefully, sending SIGKILL", "pid", h.pid)
		h.cmd.Process.Signal(syscall.SIGKILL)
	case <-ctx.Done():
		h.cmd.Process.Signal(syscall.SIGKILL)
		return ctx.Err()
	}

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until the process exits and returns its exit code.
func (h *OwnedHandle) Wait(ctx context.Context) (int, error) {
	select {
	case <-h.done:
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.exitCode, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

var _ Handle = (*OwnedHandle)(nil)
