package logs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParserLevels(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		level Level
	}{
		{"error", "2024-01-15T10:00:00.123456Z ERROR reth::cli: fatal", LevelError},
		{"warn", "2024-01-15T10:00:00Z WARN net: slow peer", LevelWarn},
		{"warning token", "WARNING something odd", LevelWarn},
		{"info", "2024-01-15T10:00:00Z  INFO Status connected_peers=12", LevelInfo},
		{"debug", "DEBUG txpool: evicted", LevelDebug},
		{"trace", "TRACE engine: payload", LevelTrace},
		{"no token", "some bare line without a level", LevelUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser()
			rec := p.Parse(tt.line, time.Now())
			assert.Equal(t, tt.level, rec.Level)
			assert.Equal(t, tt.line, rec.Raw)
		})
	}
}

func TestParserContinuationInheritsLevel(t *testing.T) {
	p := NewParser()
	now := time.Now()

	first := p.Parse("2024-01-15T10:00:00Z ERROR engine: payload rejected", now)
	assert.Equal(t, LevelError, first.Level)

	// Stack trace lines carry no level token.
	cont := p.Parse("    at execute_block (engine.rs:410)", now)
	assert.Equal(t, LevelError, cont.Level)

	next := p.Parse("2024-01-15T10:00:01Z INFO engine: recovered", now)
	assert.Equal(t, LevelInfo, next.Level)

	cont2 := p.Parse("continuation of the info message", now)
	assert.Equal(t, LevelInfo, cont2.Level)
}

func TestParserResetClearsContinuation(t *testing.T) {
	p := NewParser()
	now := time.Now()

	p.Parse("ERROR boom", now)
	p.Reset()

	rec := p.Parse("bare line after rotation", now)
	assert.Equal(t, LevelUnknown, rec.Level)
}

func TestParserTokenMustBeNearStart(t *testing.T) {
	p := NewParser()
	// The token appears far past the scan window; it is message content,
	// not a severity marker.
	line := "2024-01-15T10:00:00Z  INFO rpc: served eth_call with ERROR result in body"
	rec := p.Parse(line, time.Now())
	assert.Equal(t, LevelInfo, rec.Level)
}

func TestParserTimestampFromLine(t *testing.T) {
	p := NewParser()
	captured := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := p.Parse("2024-01-15T10:00:00.500Z INFO hello", captured)
	assert.Equal(t, 2024, rec.Timestamp.Year())
	assert.Equal(t, 500*time.Millisecond, time.Duration(rec.Timestamp.Nanosecond()))

	rec = p.Parse("INFO no timestamp here", captured)
	assert.Equal(t, captured, rec.Timestamp)
}
