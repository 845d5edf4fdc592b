package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nodeward/nodeward/internal/output"
	"github.com/nodeward/nodeward/internal/process"
	"github.com/nodeward/nodeward/internal/registry"
)

func newDetachCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "detach",
		Short: "Stop observing a node without stopping it",
		Long: `Remove the selected network from the registry. The node itself is
never touched: a running process keeps running, and a later attach or
start re-registers it.

Detaching from a node nodeward started releases ownership, after which
"nodeward stop" can no longer stop it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetach(cmd.Context(), yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func runDetach(ctx context.Context, yes bool) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(ctx, cfg.Network)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("no %s node is registered", cfg.Network)
		}
		return err
	}

	if rec.PID != 0 && process.PIDAlive(rec.PID) && !yes {
		ok, err := output.Confirm(fmt.Sprintf(
			"Release ownership of the %s node (pid %d)? nodeward will no longer be able to stop it",
			cfg.Network, rec.PID))
		if err != nil {
			return err
		}
		if !ok {
			out.Info("Aborted.")
			return nil
		}
	}

	if err := store.Delete(ctx, cfg.Network); err != nil {
		return err
	}
	out.Success("Detached from %s; the node, if running, keeps running.", cfg.Network)
	return nil
}
