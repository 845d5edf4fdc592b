// Package logs turns a growing node log file into a bounded, leveled
// record stream that UI code can read without blocking.
package logs

import (
	"regexp"
	"strings"
	"time"
)

// Level is the severity of a log record.
type Level string

const (
	LevelError   Level = "error"
	LevelWarn    Level = "warn"
	LevelInfo    Level = "info"
	LevelDebug   Level = "debug"
	LevelTrace   Level = "trace"
	LevelUnknown Level = "unknown"
)

// Record is one classified log line.
type Record struct {
	// Sequence increases monotonically per instance, including across
	// file rotations. Used for stable ordering and dedup.
	Sequence uint64 `json:"sequence"`

	// Timestamp is parsed from the line when present, else capture time.
	Timestamp time.Time `json:"timestamp"`

	// Level is the classified severity.
	Level Level `json:"level"`

	// Raw is the original line, unmodified.
	Raw string `json:"raw"`
}

// Parser classifies log lines by severity.
//
// It recognizes level tokens near the start of a line, after an optional
// timestamp prefix. Lines without a token (stack traces, wrapped
// messages) inherit the previous record's level.
type Parser struct {
	levelRegex *regexp.Regexp
	tsRegex    *regexp.Regexp
	lastLevel  Level
}

// tokenScanWindow bounds how far into a line a level token may appear.
// Reth's terminal format places the level right after the timestamp.
const tokenScanWindow = 48

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{
		levelRegex: regexp.MustCompile(`\b(ERROR|WARN|WARNING|INFO|DEBUG|TRACE)\b`),
		tsRegex:    regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?Z?`),
	}
}

// Parse classifies a single complete line. The returned record carries
// no sequence number; the tailer assigns it.
func (p *Parser) Parse(line string, captured time.Time) Record {
	rec := Record{
		Timestamp: captured,
		Raw:       line,
		Level:     p.classify(line),
	}
	if ts, ok := p.parseTimestamp(line); ok {
		rec.Timestamp = ts
	}
	return rec
}

// Reset clears the continuation-level state, e.g. after a rotation.
func (p *Parser) Reset() {
	p.lastLevel = ""
}

func (p *Parser) classify(line string) Level {
	window := line
	if len(window) > tokenScanWindow {
		window = window[:tokenScanWindow]
	}

	var level Level
	switch p.levelRegex.FindString(window) {
	case "ERROR":
		level = LevelError
	case "WARN", "WARNING":
		level = LevelWarn
	case "INFO":
		level = LevelInfo
	case "DEBUG":
		level = LevelDebug
	case "TRACE":
		level = LevelTrace
	default:
		// Continuation line: inherit the previous record's level.
		if p.lastLevel != "" {
			return p.lastLevel
		}
		return LevelUnknown
	}

	p.lastLevel = level
	return level
}

func (p *Parser) parseTimestamp(line string) (time.Time, bool) {
	m := p.tsRegex.FindString(line)
	if m == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, m); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// TrimLine strips a trailing carriage return left by CRLF content.
func TrimLine(line string) string {
	return strings.TrimSuffix(line, "\r")
}
