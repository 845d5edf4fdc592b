// Command nodeward manages a local reth node: spawn, observe, and stop
// it, tail its logs, and watch its health.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nodeward/nodeward/internal/config"
	"github.com/nodeward/nodeward/internal/output"
	"github.com/nodeward/nodeward/internal/probe"
	"github.com/nodeward/nodeward/internal/registry"
	"github.com/nodeward/nodeward/internal/supervisor"
)

// Version is set at build time.
var Version = "dev"

// knownNetworks are the chains reth ships presets for.
var knownNetworks = []string{"mainnet", "sepolia", "holesky", "hoodi"}

var (
	flagConfig  string
	flagNetwork string
	flagVerbose bool
	flagNoColor bool
	flagJSON    bool

	cfg *config.Config
	out = output.DefaultLogger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nodeward",
		Short: "Lifecycle and log observation for a local reth node",
		Long: `nodeward spawns, observes, and stops a local reth execution client.

It detects already-running nodes by probing their RPC ports and attaches
to them read-only: a node nodeward did not start is never terminated.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(flagConfig)
			if err != nil {
				return err
			}
			if flagNetwork != "" {
				cfg.Network = flagNetwork
			}

			out.SetNoColor(flagNoColor)
			out.SetVerbose(flagVerbose)
			out.SetJSONMode(flagJSON)

			level := slog.LevelWarn
			if flagVerbose || cfg.LogLevel == "debug" {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: nodeward.toml in the cache dir)")
	rootCmd.PersistentFlags().StringVarP(&flagNetwork, "network", "n", "", "chain to operate on (mainnet, sepolia, ...)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print machine-readable JSON where supported")

	rootCmd.AddCommand(
		newStartCmd(),
		newStopCmd(),
		newStatusCmd(),
		newAttachCmd(),
		newDetachCmd(),
		newLogsCmd(),
		newWatchCmd(),
		newInstallCmd(),
		newNetworksCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		out.Error("%v", err)
		os.Exit(1)
	}
}

// openStore opens the instance registry, creating the cache dir on
// first use.
func openStore() (registry.Store, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return registry.NewBoltStore(cfg.RegistryPath())
}

// newProber builds the port prober from the loaded config.
func newProber() *probe.Prober {
	return probe.New(probe.Config{
		Host:    cfg.ProbeHost,
		Timeout: cfg.ProbeTimeout,
	})
}

// instanceConfig maps the app config onto one network's instance.
func instanceConfig(network string) supervisor.Config {
	return supervisor.Config{
		ID:             network,
		Network:        network,
		DataDir:        cfg.DataDir,
		BinaryPath:     cfg.BinaryPath,
		LogDir:         cfg.LogDir(),
		StartupTimeout: cfg.StartupTimeout,
		GracePeriod:    cfg.GracePeriod,
		BufferCapacity: cfg.BufferCapacity,
		FullNode:       cfg.FullNode,
	}
}
