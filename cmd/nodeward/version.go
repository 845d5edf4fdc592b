package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nodeward/nodeward/internal/installer"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show nodeward and node binary versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			out.Info("nodeward %s", Version)

			inst := installer.New(filepath.Join(cfg.CacheDir, "bin"))
			binary, err := inst.Resolve(cfg.BinaryPath)
			if err != nil {
				out.Info("node binary: not installed")
				return nil
			}

			if v, err := inst.Version(cmd.Context(), binary); err == nil {
				out.Info("node binary: %s (%s)", v, binary)
			} else {
				out.Info("node binary: %s (version check failed: %v)", binary, err)
			}
			return nil
		},
	}
}
