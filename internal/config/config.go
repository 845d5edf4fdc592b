// Package config loads application configuration from file,
// environment, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// DataDir is the node's data directory.
	DataDir string `mapstructure:"data_dir"`

	// CacheDir is where logs and the instance registry live.
	CacheDir string `mapstructure:"cache_dir"`

	// BinaryPath overrides node binary discovery.
	BinaryPath string `mapstructure:"binary_path"`

	// Network is the default chain.
	Network string `mapstructure:"network"`

	LogLevel string `mapstructure:"log_level"`

	// Polling and probing.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	ProbeHost    string        `mapstructure:"probe_host"`

	// Lifecycle bounds.
	StartupTimeout time.Duration `mapstructure:"startup_timeout"`
	GracePeriod    time.Duration `mapstructure:"grace_period"`

	// BufferCapacity sizes the recent-log ring buffer per instance.
	BufferCapacity int `mapstructure:"buffer_capacity"`

	// FullNode runs owned nodes with full-node pruning.
	FullNode bool `mapstructure:"full_node"`

	// MetricsURL is the node's Prometheus endpoint; empty disables
	// metrics collection.
	MetricsURL string `mapstructure:"metrics_url"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	cacheDir, err := os.UserCacheDir()
	if err != nil || cacheDir == "" {
		cacheDir = filepath.Join(homeDir, ".cache")
	}

	return &Config{
		DataDir:  filepath.Join(homeDir, ".local", "share", "reth"),
		CacheDir: filepath.Join(cacheDir, "nodeward"),
		Network:  "mainnet",
		LogLevel: "info",

		PollInterval: 2 * time.Second,
		ProbeTimeout: 300 * time.Millisecond,
		ProbeHost:    "127.0.0.1",

		StartupTimeout: 30 * time.Second,
		GracePeriod:    10 * time.Second,

		BufferCapacity: 2000,
		MetricsURL:     "http://127.0.0.1:9001",
	}
}

// RegistryPath is where the instance registry database lives.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.CacheDir, "registry.db")
}

// LogDir is where owned nodes are told to write log files.
func (c *Config) LogDir() string {
	return filepath.Join(c.CacheDir, "logs")
}

// Load reads configuration from the given file (or the default
// locations when path is empty), then the environment, on top of
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("nodeward")
		v.AddConfigPath(cfg.CacheDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("NODEWARD")
	v.AutomaticEnv()

	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("cache_dir", cfg.CacheDir)
	v.SetDefault("network", cfg.Network)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("poll_interval", cfg.PollInterval)
	v.SetDefault("probe_timeout", cfg.ProbeTimeout)
	v.SetDefault("probe_host", cfg.ProbeHost)
	v.SetDefault("startup_timeout", cfg.StartupTimeout)
	v.SetDefault("grace_period", cfg.GracePeriod)
	v.SetDefault("buffer_capacity", cfg.BufferCapacity)
	v.SetDefault("metrics_url", cfg.MetricsURL)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file in the search path is fine; an
		// explicitly named file must exist.
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if path != "" || !notFound {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be positive, got %s", c.ProbeTimeout)
	}
	if c.BufferCapacity <= 0 {
		return fmt.Errorf("buffer_capacity must be positive, got %d", c.BufferCapacity)
	}
	return nil
}
