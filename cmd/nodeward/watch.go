package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nodeward/nodeward/internal/metrics"
	"github.com/nodeward/nodeward/internal/supervisor"
)

func newWatchCmd() *cobra.Command {
	var withMetrics bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Continuously reconcile and report node state",
		Long: `Run the reconciliation loop in the foreground: probe ports, tail
logs, and adopt externally started nodes, printing state transitions as
they happen.

Stopping the watcher never stops the node: owned processes are left
running and re-adopted by the next watch or status call.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), withMetrics)
		},
	}

	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "also poll the node's Prometheus endpoint")
	return cmd
}

func runWatch(ctx context.Context, withMetrics bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	if err := m.Restore(ctx); err != nil {
		return err
	}
	if _, err := m.Get(cfg.Network); err != nil {
		if _, err := m.Add(ctx, instanceConfig(cfg.Network)); err != nil {
			return err
		}
	}

	if withMetrics && cfg.MetricsURL != "" {
		collector := metrics.NewCollector(cfg.MetricsURL)
		go pollMetrics(ctx, collector)
	}

	go reportTransitions(ctx, m)

	out.Info("Watching %s (poll every %s). Ctrl-C to exit; the node keeps running.",
		cfg.Network, cfg.PollInterval)

	if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// reportTransitions prints observed-state changes so the terminal shows
// a timeline instead of a wall of snapshots.
func reportTransitions(ctx context.Context, m *supervisor.Manager) {
	last := make(map[string]supervisor.ObservedState)
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range m.List(0) {
				if prev, ok := last[s.ID]; ok && prev == s.Observed {
					continue
				}
				last[s.ID] = s.Observed
				printStatusTable([]supervisor.Status{s})
			}
		}
	}
}

func pollMetrics(ctx context.Context, c *metrics.Collector) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastErr string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := c.Poll(ctx)
			switch {
			case err != nil && err.Error() != lastErr:
				lastErr = err.Error()
				out.Debug("metrics: %v", err)
			case err == nil:
				lastErr = ""
				if peers, ok := c.Peers.Latest(); ok {
					if height, ok := c.BlockHeight.Latest(); ok {
						out.Debug("metrics: height=%.0f peers=%.0f", height, peers)
					}
				}
			}
		}
	}
}
