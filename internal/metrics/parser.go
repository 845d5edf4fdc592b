// Package metrics collects node health series from the node's
// Prometheus text endpoint.
package metrics

import (
	"sort"
	"strconv"
	"strings"
)

// ParseText parses Prometheus exposition text into metric name to
// value. Labels are stripped: for a labeled family the last sample in
// the text wins, which is enough for the gauge-style series the engine
// charts.
func ParseText(text string) map[string]float64 {
	out := make(map[string]float64)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.LastIndexByte(line, ' ')
		if idx < 0 {
			continue
		}

		name := strings.TrimSpace(line[:idx])
		if brace := strings.IndexByte(name, '{'); brace >= 0 {
			name = name[:brace]
		}
		if name == "" {
			continue
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(line[idx+1:]), 64)
		if err != nil {
			continue
		}
		out[name] = value
	}

	return out
}

// Names returns the sorted metric names present in the text, for
// letting the user pick extra series to track.
func Names(text string) []string {
	parsed := ParseText(text)
	names := make([]string, 0, len(parsed))
	for name := range parsed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
