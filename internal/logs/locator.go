package logs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Locator computes where a node's log files are expected to live and
// discovers the active one.
//
// Reth writes logs under <CACHE_DIR>/reth/logs/<network> by default,
// either as reth.log or as date-stamped files like reth-2024-01-15-20.log.
// A node that has not started yet legitimately has no log file, so "not
// found" is a normal outcome, never an error.
type Locator struct {
	// CacheDir overrides the platform cache directory. Used in tests.
	CacheDir string
}

// Resolve returns candidate log directories in precedence order for the
// given data directory and network. Rerun whenever either input changes
// or the previously resolved file disappears.
func (l *Locator) Resolve(dataDir, network string) []string {
	var dirs []string

	if dataDir != "" {
		if network != "" {
			dirs = append(dirs, filepath.Join(dataDir, "logs", network))
		}
		dirs = append(dirs, filepath.Join(dataDir, "logs"))
	}

	cacheDir := l.CacheDir
	if cacheDir == "" {
		if d, err := os.UserCacheDir(); err == nil {
			cacheDir = d
		}
	}
	if cacheDir != "" {
		base := filepath.Join(cacheDir, "reth", "logs")
		if network != "" {
			dirs = append(dirs, filepath.Join(base, network))
		}
		dirs = append(dirs, base)
	}

	return dirs
}

// PickActive scans candidate directories in order and returns the log
// file most likely to be receiving writes. Returns false when no
// candidate directory holds a log file yet.
func (l *Locator) PickActive(candidates []string) (string, bool) {
	for _, dir := range candidates {
		if path, ok := findLogFile(dir); ok {
			return path, true
		}
	}
	return "", false
}

// findLogFile selects the best log file in one directory: an exact
// reth.log first, then reth-* date files, then any .log, newest first
// within each tier.
func findLogFile(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	type candidate struct {
		path string
		name string
		mod  int64
	}

	var found []candidate
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{
			path: filepath.Join(dir, e.Name()),
			name: e.Name(),
			mod:  info.ModTime().UnixNano(),
		})
	}
	if len(found) == 0 {
		return "", false
	}

	tier := func(name string) int {
		switch {
		case name == "reth.log":
			return 0
		case strings.HasPrefix(name, "reth-"):
			return 1
		default:
			return 2
		}
	}

	sort.Slice(found, func(i, j int) bool {
		ti, tj := tier(found[i].name), tier(found[j].name)
		if ti != tj {
			return ti < tj
		}
		return found[i].mod > found[j].mod
	})

	return found[0].path, true
}
