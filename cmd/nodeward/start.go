package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nodeward/nodeward/internal/installer"
	"github.com/nodeward/nodeward/internal/process"
	"github.com/nodeward/nodeward/internal/registry"
	"github.com/nodeward/nodeward/internal/supervisor"
)

func newStartCmd() *cobra.Command {
	var extraArgs []string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Spawn the node and wait for it to become reachable",
		Long: `Spawn the node for the selected network and wait until one of its
RPC ports answers or the startup timeout elapses.

The spawned process is not tied to this command: it keeps running after
nodeward exits and is stopped with "nodeward stop".

Examples:
  # Start a mainnet node
  nodeward start

  # Start a sepolia node with extra reth flags
  nodeward start -n sepolia -- --http.api eth,net`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd.Context(), append(extraArgs, args...))
		},
	}

	cmd.Flags().StringSliceVar(&extraArgs, "arg", nil, "extra argument passed to the node binary (repeatable)")
	return cmd
}

func runStart(ctx context.Context, extraArgs []string) error {
	inst := installer.New(filepath.Join(cfg.CacheDir, "bin"))
	binary, err := inst.Resolve(cfg.BinaryPath)
	if err != nil {
		if errors.Is(err, installer.ErrNotInstalled) {
			return fmt.Errorf("no reth binary found; run \"nodeward install\" first")
		}
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	m := supervisor.NewManager(supervisor.ManagerConfig{
		Prober:       newProber(),
		Store:        store,
		PollInterval: cfg.PollInterval,
	})

	icfg := instanceConfig(cfg.Network)
	icfg.BinaryPath = binary
	icfg.ExtraArgs = extraArgs

	node, err := m.Add(ctx, icfg)
	if err != nil {
		return err
	}
	defer node.Close()

	// Settle first: something may already be listening.
	node.Poll(ctx)
	if snap := node.Snapshot(0); snap.Observed == supervisor.StateExternallyRunning {
		return fmt.Errorf("a node is already running on the %s ports; nodeward is attached read-only", cfg.Network)
	}

	if err := m.Start(ctx, cfg.Network); err != nil {
		return err
	}

	snap := node.Snapshot(0)
	out.Info("Started %s node (pid %d), waiting for RPC...", cfg.Network, snap.PID)
	persistPID(ctx, store, cfg.Network, snap.PID)

	deadline := time.Now().Add(cfg.StartupTimeout + cfg.PollInterval)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.PollInterval):
		}

		node.Poll(ctx)
		switch snap := node.Snapshot(0); snap.Observed {
		case supervisor.StateRunning:
			out.Success("%s node is running (pid %d)", cfg.Network, snap.PID)
			return nil
		case supervisor.StateCrashed:
			// A startup-timeout crash can leave the process alive; keep
			// its pid so "nodeward stop" still reaches it.
			if snap.PID == 0 || !process.PIDAlive(snap.PID) {
				clearPID(ctx, store, cfg.Network)
			}
			return fmt.Errorf("node failed to start: %s", snap.LastError)
		}
	}

	return fmt.Errorf("node did not become reachable within %s", cfg.StartupTimeout)
}

func persistPID(ctx context.Context, store registry.Store, id string, pid int) {
	rec, err := store.Get(ctx, id)
	if err != nil {
		out.Debug("failed to load instance record: %v", err)
		return
	}
	rec.PID = pid
	if err := store.Update(ctx, rec); err != nil {
		out.Debug("failed to persist pid: %v", err)
	}
}

func clearPID(ctx context.Context, store registry.Store, id string) {
	persistPID(ctx, store, id, 0)
}
