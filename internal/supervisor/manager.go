package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nodeward/nodeward/internal/probe"
	"github.com/nodeward/nodeward/internal/registry"
)

// DefaultPollInterval paces the reconciliation loop. Roughly one probe
// round plus a bounded log read per instance per tick.
const DefaultPollInterval = 2 * time.Second

// Manager owns the set of instances and drives their polling loop.
type Manager struct {
	prober   *probe.Prober
	store    registry.Store
	interval time.Duration
	logger   *slog.Logger

	mu        sync.RWMutex
	instances map[string]*Instance
}

// ManagerConfig configures a Manager. Store may be nil to run without
// persistence.
type ManagerConfig struct {
	Prober       *probe.Prober
	Store        registry.Store
	PollInterval time.Duration
	Logger       *slog.Logger
}

// NewManager creates an empty manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Prober == nil {
		cfg.Prober = probe.New(probe.Config{})
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		prober:    cfg.Prober,
		store:     cfg.Store,
		interval:  cfg.PollInterval,
		logger:    cfg.Logger,
		instances: make(map[string]*Instance),
	}
}

// Add registers a new instance and persists its record. The instance
// starts in Unknown; the next poll settles it, attaching read-only if
// something already listens on its ports.
func (m *Manager) Add(ctx context.Context, cfg Config) (*Instance, error) {
	if cfg.ID == "" {
		return nil, errors.New("instance id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.instances[cfg.ID]; ok {
		return nil, fmt.Errorf("instance %q already registered", cfg.ID)
	}

	inst := NewInstance(cfg, m.prober, m.logger)

	if m.store != nil {
		rec := &registry.Record{
			ID:         cfg.ID,
			Network:    cfg.Network,
			DataDir:    cfg.DataDir,
			BinaryPath: cfg.BinaryPath,
			Desired:    string(DesiredStopped),
		}
		if err := m.store.Create(ctx, rec); err != nil && !errors.Is(err, registry.ErrAlreadyExists) {
			return nil, fmt.Errorf("failed to persist instance: %w", err)
		}
	}

	m.instances[cfg.ID] = inst
	m.logger.Info("instance registered", "instance", cfg.ID, "network", cfg.Network)
	return inst, nil
}

// Get returns a registered instance.
func (m *Manager) Get(id string) (*Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return inst, nil
}

// Remove unregisters an instance. An owned process is stopped
// gracefully unless orphan is true; a detected process is never
// touched either way.
func (m *Manager) Remove(ctx context.Context, id string, orphan bool) error {
	m.mu.Lock()
	inst, ok := m.instances[id]
	if ok {
		delete(m.instances, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	switch snap := inst.Snapshot(0); snap.Ownership {
	case OwnershipOwned:
		if orphan {
			if err := inst.Orphan(); err != nil {
				return err
			}
		} else if err := inst.Stop(ctx); err != nil && !errors.Is(err, ErrInvalidState) {
			return err
		}
	case OwnershipDetected:
		// Read-only attachment, nothing to clean up.
	}

	if err := inst.Close(); err != nil {
		m.logger.Warn("failed to close instance", "instance", id, "error", err)
	}

	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("failed to delete instance record: %w", err)
		}
	}

	m.logger.Info("instance removed", "instance", id, "orphaned", orphan)
	return nil
}

// Restore re-registers every persisted instance. Observed state is not
// restored: the first poll re-derives it by probing, which adopts any
// node still running from a previous session as ExternallyRunning.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	recs, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list instance records: %w", err)
	}

	for _, rec := range recs {
		_, err := m.Add(ctx, Config{
			ID:         rec.ID,
			Network:    rec.Network,
			DataDir:    rec.DataDir,
			BinaryPath: rec.BinaryPath,
		})
		if err != nil {
			m.logger.Warn("failed to restore instance", "instance", rec.ID, "error", err)
		}
	}
	return nil
}

// List returns snapshots of all instances, sorted by id.
func (m *Manager) List(tail int) []Status {
	m.mu.RLock()
	insts := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		insts = append(insts, inst)
	}
	m.mu.RUnlock()

	statuses := make([]Status, 0, len(insts))
	for _, inst := range insts {
		statuses = append(statuses, inst.Snapshot(tail))
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses
}

// PollAll runs one reconciliation pass over every instance.
func (m *Manager) PollAll(ctx context.Context) {
	m.mu.RLock()
	insts := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		insts = append(insts, inst)
	}
	m.mu.RUnlock()

	for _, inst := range insts {
		inst.Poll(ctx)
	}
}

// Start is a convenience wrapper: start the identified instance and
// persist the new desired state.
func (m *Manager) Start(ctx context.Context, id string) error {
	inst, err := m.Get(id)
	if err != nil {
		return err
	}
	if err := inst.Start(ctx); err != nil {
		return err
	}
	m.persistDesired(ctx, id, DesiredRunning)
	return nil
}

// Stop is the graceful-stop counterpart of Start.
func (m *Manager) Stop(ctx context.Context, id string) error {
	inst, err := m.Get(id)
	if err != nil {
		return err
	}
	if err := inst.Stop(ctx); err != nil {
		return err
	}
	m.persistDesired(ctx, id, DesiredStopped)
	return nil
}

func (m *Manager) persistDesired(ctx context.Context, id string, desired DesiredState) {
	if m.store == nil {
		return
	}
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		m.logger.Warn("failed to load instance record", "instance", id, "error", err)
		return
	}
	rec.Desired = string(desired)
	if err := m.store.Update(ctx, rec); err != nil {
		m.logger.Warn("failed to persist desired state", "instance", id, "error", err)
	}
}

// Run drives the polling loop until the context is cancelled. Shutdown
// only stops polling: owned processes are left running and re-adopted
// via Restore plus probing on the next session.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.PollAll(ctx)
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return ctx.Err()
		case <-ticker.C:
			m.PollAll(ctx)
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, inst := range m.instances {
		if err := inst.Close(); err != nil {
			m.logger.Warn("failed to close instance", "instance", id, "error", err)
		}
	}
}
