package process

import "strconv"

// CommandOptions describe the reth invocation for an owned node.
type CommandOptions struct {
	// Network selects the chain (mainnet, sepolia, ...). Empty means the
	// binary's default.
	Network string

	// DataDir overrides the node's data directory.
	DataDir string

	// LogDir enables file logging into the given directory. The node
	// creates its own network subdirectory underneath.
	LogDir string

	// FullNode runs with full-node pruning.
	FullNode bool

	// LogMaxSizeMB and LogMaxFiles bound file-log rotation.
	LogMaxSizeMB int
	LogMaxFiles  int

	// ExtraArgs are appended verbatim.
	ExtraArgs []string
}

// NodeArgs builds the argument list for `reth node`. File logging is
// configured so the tailer has a file to follow even though stdio is
// also captured.
func NodeArgs(opts CommandOptions) []string {
	args := []string{"node"}

	if opts.FullNode {
		args = append(args, "--full")
	}
	if opts.Network != "" {
		args = append(args, "--chain", opts.Network)
	}
	if opts.DataDir != "" {
		args = append(args, "--datadir", opts.DataDir)
	}

	args = append(args, "--log.stdout.format", "terminal")

	if opts.LogDir != "" {
		maxSize := opts.LogMaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		maxFiles := opts.LogMaxFiles
		if maxFiles <= 0 {
			maxFiles = 3
		}
		args = append(args,
			"--log.file.directory", opts.LogDir,
			"--log.file.format", "terminal",
			"--log.file.filter", "info",
			"--log.file.max-size", strconv.Itoa(maxSize),
			"--log.file.max-files", strconv.Itoa(maxFiles),
		)
	}

	return append(args, opts.ExtraArgs...)
}
