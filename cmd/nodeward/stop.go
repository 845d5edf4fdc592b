package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nodeward/nodeward/internal/output"
	"github.com/nodeward/nodeward/internal/probe"
	"github.com/nodeward/nodeward/internal/process"
	"github.com/nodeward/nodeward/internal/registry"
)

func newStopCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Gracefully stop a node started by nodeward",
		Long: `Gracefully stop the selected network's node: SIGTERM first, SIGKILL
only after the grace period.

Only processes nodeward itself started can be stopped. A node that was
detected by port probing is attached read-only and must be stopped by
whoever started it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(cmd.Context(), yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func runStop(ctx context.Context, yes bool) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(ctx, cfg.Network)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("no %s node is registered; nothing to stop", cfg.Network)
		}
		return err
	}

	if rec.PID == 0 {
		// Probe to tell the user whether something external is running.
		if anyReachable(ctx) {
			return fmt.Errorf("the running %s node was not started by nodeward; attach is read-only", cfg.Network)
		}
		return fmt.Errorf("no %s node is running", cfg.Network)
	}

	if !process.PIDAlive(rec.PID) {
		out.Info("Node process %d already exited.", rec.PID)
		clearPID(ctx, store, cfg.Network)
		return nil
	}

	if !yes {
		ok, err := output.Confirm(fmt.Sprintf("Stop the %s node (pid %d)", cfg.Network, rec.PID))
		if err != nil {
			return err
		}
		if !ok {
			out.Info("Aborted.")
			return nil
		}
	}

	out.Info("Stopping %s node (pid %d)...", cfg.Network, rec.PID)
	if err := process.TerminatePID(ctx, rec.PID, cfg.GracePeriod, nil); err != nil {
		return err
	}

	clearPID(ctx, store, cfg.Network)
	rec.Desired = "Stopped"
	rec.PID = 0
	if err := store.Update(ctx, rec); err != nil {
		out.Debug("failed to persist desired state: %v", err)
	}

	out.Success("%s node stopped", cfg.Network)
	return nil
}

func anyReachable(ctx context.Context) bool {
	results, err := newProber().ClassifyPorts(ctx, probe.DefaultTargets())
	if err != nil {
		return false
	}
	return probe.AnyReachable(results)
}
