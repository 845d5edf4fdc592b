package logs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolvePrecedence(t *testing.T) {
	l := &Locator{CacheDir: "/tmp/cache"}

	dirs := l.Resolve("/data/reth", "mainnet")
	require.Len(t, dirs, 4)
	assert.Equal(t, filepath.Join("/data/reth", "logs", "mainnet"), dirs[0])
	assert.Equal(t, filepath.Join("/data/reth", "logs"), dirs[1])
	assert.Equal(t, filepath.Join("/tmp/cache", "reth", "logs", "mainnet"), dirs[2])
	assert.Equal(t, filepath.Join("/tmp/cache", "reth", "logs"), dirs[3])
}

func TestResolveWithoutDataDir(t *testing.T) {
	l := &Locator{CacheDir: "/tmp/cache"}
	dirs := l.Resolve("", "sepolia")
	require.Len(t, dirs, 2)
	assert.Equal(t, filepath.Join("/tmp/cache", "reth", "logs", "sepolia"), dirs[0])
}

func TestPickActiveNotFoundIsNotAnError(t *testing.T) {
	l := &Locator{CacheDir: t.TempDir()}
	_, ok := l.PickActive(l.Resolve("", "mainnet"))
	assert.False(t, ok)
}

func TestPickActivePrefersRethLog(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "other.log"), "x")
	writeFile(t, filepath.Join(dir, "reth-2024-01-15-20.log"), "x")
	writeFile(t, filepath.Join(dir, "reth.log"), "x")

	path, ok := newLocator(t).PickActive([]string{dir})
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "reth.log"), path)
}

func TestPickActivePrefersRethPrefixOverOthers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zzz.log"), "x")
	writeFile(t, filepath.Join(dir, "reth-2024-01-15-20.log"), "x")

	path, ok := newLocator(t).PickActive([]string{dir})
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "reth-2024-01-15-20.log"), path)
}

func TestPickActiveNewestWithinTier(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "reth-2024-01-14-09.log")
	newer := filepath.Join(dir, "reth-2024-01-15-20.log")
	writeFile(t, older, "x")
	writeFile(t, newer, "x")

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	path, ok := newLocator(t).PickActive([]string{dir})
	require.True(t, ok)
	assert.Equal(t, newer, path)
}

func TestPickActiveFirstDirectoryWins(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(first, "reth.log"), "x")
	writeFile(t, filepath.Join(second, "reth.log"), "x")

	path, ok := newLocator(t).PickActive([]string{first, second})
	require.True(t, ok)
	assert.Equal(t, filepath.Join(first, "reth.log"), path)
}

func TestPickActiveIgnoresNonLogFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "reth.toml"), "x")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested.log"), 0o755))

	_, ok := newLocator(t).PickActive([]string{dir})
	assert.False(t, ok)
}

func newLocator(t *testing.T) *Locator {
	t.Helper()
	return &Locator{CacheDir: t.TempDir()}
}
