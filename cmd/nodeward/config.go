package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/nodeward/nodeward/internal/nodeconfig"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show effective configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show nodeward's effective configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			},
		},
		&cobra.Command{
			Use:   "node",
			Short: "Show the node's own reth.toml settings",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runNodeConfig()
			},
		},
	)
	return cmd
}

func runNodeConfig() error {
	rethCfg, path, err := nodeconfig.Load(cfg.DataDir, cfg.Network)
	if err != nil {
		return err
	}

	if path == "" {
		out.Info("No reth.toml found under %s; the node runs on defaults.", cfg.DataDir)
		return nil
	}

	out.Bold("%s", path)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rethCfg)
}
