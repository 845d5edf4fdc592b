package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nodeward/nodeward/internal/output"
	"github.com/nodeward/nodeward/internal/supervisor"
)

func newStatusCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show node status",
		Long: `Probe the node's RPC ports and show its lifecycle state.

Shows the selected network by default, or every registered network with
--all. Use --json for machine-readable output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), all)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "show every registered network")
	return cmd
}

func runStatus(ctx context.Context, all bool) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	networks := []string{cfg.Network}
	if all {
		recs, err := store.List(ctx)
		if err != nil {
			return err
		}
		networks = networks[:0]
		for _, rec := range recs {
			networks = append(networks, rec.ID)
		}
		if len(networks) == 0 {
			networks = []string{cfg.Network}
		}
	}

	m := supervisor.NewManager(supervisor.ManagerConfig{
		Prober: newProber(),
	})

	for _, network := range networks {
		if _, err := m.Add(ctx, instanceConfig(network)); err != nil {
			return err
		}
	}
	m.PollAll(ctx)

	statuses := m.List(0)
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	printStatusTable(statuses)
	return nil
}

func printStatusTable(statuses []supervisor.Status) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NETWORK\tSTATE\tCONTROL\tPID\tPORTS\tLOG")

	for _, s := range statuses {
		ports := make([]string, len(s.Ports))
		for i, p := range s.Ports {
			ports[i] = output.PortString(p)
		}

		pid := "-"
		if s.PID > 0 {
			pid = fmt.Sprintf("%d", s.PID)
		}
		logPath := s.LogPath
		if logPath == "" {
			logPath = "-"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			output.StateString(s.Observed),
			output.OwnershipString(s.Ownership),
			pid,
			strings.Join(ports, " "),
			logPath,
		)
	}
	w.Flush()

	for _, s := range statuses {
		if s.LastError != "" {
			out.Warn("%s: %s", s.ID, s.LastError)
		}
	}
}
