package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nodeward/nodeward/internal/supervisor"
)

func newAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach",
		Short: "Register an externally started node for observation",
		Long: `Probe the selected network's RPC ports and, if something is
listening, register it so status and watch include it.

Attachment is read-only: an attached node was started by someone else
and can never be stopped by nodeward.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttach(cmd.Context())
		},
	}
}

func runAttach(ctx context.Context) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	_, gerr := store.Get(ctx, cfg.Network)
	existed := gerr == nil

	m := supervisor.NewManager(supervisor.ManagerConfig{
		Prober: newProber(),
		Store:  store,
	})
	node, err := m.Add(ctx, instanceConfig(cfg.Network))
	if err != nil {
		return err
	}
	defer node.Close()

	node.Poll(ctx)
	snap := node.Snapshot(0)
	if snap.Observed != supervisor.StateExternallyRunning {
		if !existed {
			store.Delete(ctx, cfg.Network)
		}
		return fmt.Errorf("no %s node is listening; nothing to attach to", cfg.Network)
	}

	out.Success("Attached to an external %s node (read-only).", cfg.Network)
	printStatusTable([]supervisor.Status{snap})
	return nil
}
