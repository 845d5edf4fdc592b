package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nodeward/nodeward/internal/logs"
)

func newNetworksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List known networks and local node data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNetworks()
		},
	}
}

func runNetworks() error {
	locator := &logs.Locator{}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NETWORK\tDATA\tLOGS")

	for _, network := range knownNetworks {
		data := "-"
		if _, err := os.Stat(filepath.Join(cfg.DataDir, network)); err == nil {
			data = filepath.Join(cfg.DataDir, network)
		}

		logPath := "-"
		if path, ok := locator.PickActive(locator.Resolve(cfg.DataDir, network)); ok {
			logPath = path
		}

		fmt.Fprintf(w, "%s\t%s\t%s\n", network, data, logPath)
	}
	return w.Flush()
}
