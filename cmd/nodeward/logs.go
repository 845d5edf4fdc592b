package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"

	"github.com/nodeward/nodeward/internal/logs"
	"github.com/nodeward/nodeward/internal/output"
)

func newLogsCmd() *cobra.Command {
	var (
		follow bool
		lines  int
		level  string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the node's log file",
		Long: `Show recent lines from the node's active log file, with severity
coloring. The file is found the way the node writes it: the network
subdirectory first, then the log directory root, newest rotation first.

Examples:
  # Last 50 lines
  nodeward logs

  # Follow, errors and warnings only
  nodeward logs -f --level warn`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd.Context(), follow, lines, logs.Level(level))
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new lines")
	cmd.Flags().IntVar(&lines, "tail", logs.DefaultBackfillLines, "number of recent lines to print")
	cmd.Flags().StringVar(&level, "level", "", "only show records at this severity or above (error, warn, info, debug)")
	return cmd
}

func runLogs(ctx context.Context, follow bool, lines int, minLevel logs.Level) error {
	locator := &logs.Locator{}
	var candidates []string
	if cfg.Network != "" {
		candidates = append(candidates, filepath.Join(cfg.LogDir(), cfg.Network))
	}
	candidates = append(candidates, cfg.LogDir())
	candidates = append(candidates, locator.Resolve(cfg.DataDir, cfg.Network)...)

	path, ok := locator.PickActive(candidates)
	if !ok {
		return fmt.Errorf("no log file found for %s; has the node ever run with file logging?", cfg.Network)
	}
	out.Debug("following %s", path)

	parser := logs.NewParser()
	show := func(rec logs.Record) {
		if levelAtLeast(rec.Level, minLevel) {
			out.Info("%s", output.RecordString(rec))
		}
	}

	// Backfill: parse the whole file through a bounded ring so only the
	// newest lines survive, then print them in order.
	buffer := logs.NewRingBuffer(lines)
	tailer := logs.NewTailer(path, logs.TailerConfig{
		Buffer:        buffer,
		BackfillLines: lines,
	})
	if _, err := tailer.Poll(); err != nil {
		return err
	}
	for _, rec := range buffer.Snapshot() {
		show(rec)
	}
	if !follow {
		return tailer.Close()
	}
	if err := tailer.Close(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Follow mode rides nxadm/tail for inotify wakeups and reopening
	// across rotations.
	t, err := tail.TailFile(path, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Location: &tail.SeekInfo{Whence: io.SeekEnd},
		Logger:   log.New(io.Discard, "", 0),
	})
	if err != nil {
		return fmt.Errorf("failed to follow log file: %w", err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				out.Warn("log read error: %v", line.Err)
				continue
			}
			text := logs.TrimLine(line.Text)
			if text == "" {
				continue
			}
			show(parser.Parse(text, time.Now()))
		}
	}
}

// levelAtLeast orders severities for the --level filter; unknown
// records always pass so nothing is silently hidden.
func levelAtLeast(have, min logs.Level) bool {
	if min == "" || have == logs.LevelUnknown {
		return true
	}
	rank := map[logs.Level]int{
		logs.LevelTrace: 0,
		logs.LevelDebug: 1,
		logs.LevelInfo:  2,
		logs.LevelWarn:  3,
		logs.LevelError: 4,
	}
	return rank[have] >= rank[min]
}
