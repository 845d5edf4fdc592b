package main

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nodeward/nodeward/internal/installer"
)

func newInstallCmd() *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Download and install the reth binary",
		Long: `Download a reth release from GitHub and install it into the cache
directory. Without --release the newest stable release is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), version)
		},
	}

	cmd.Flags().StringVar(&version, "release", "", "release tag to install (e.g. v1.5.0)")
	return cmd
}

func runInstall(ctx context.Context, version string) error {
	inst := installer.New(filepath.Join(cfg.CacheDir, "bin"))

	path, err := inst.Install(ctx, version)
	if err != nil {
		return err
	}

	if v, err := inst.Version(ctx, path); err == nil {
		out.Success("Installed %s at %s", v, path)
	} else {
		out.Success("Installed reth at %s", path)
		out.Warn("version check failed: %v", err)
	}
	return nil
}
