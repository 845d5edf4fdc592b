package installer

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reth")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	i := New(t.TempDir())
	got, err := i.Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestResolveExplicitNotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reth")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	i := New(t.TempDir())
	_, err := i.Resolve(path)
	require.Error(t, err)
}

func TestResolveInstallDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reth"), []byte("#!/bin/sh\n"), 0o755))

	i := New(dir)
	got, err := i.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reth"), got)
}

func TestResolveNotInstalled(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	i := New(t.TempDir())
	_, err := i.Resolve("")
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake-reth")
	require.NoError(t, os.WriteFile(path,
		[]byte("#!/bin/sh\necho 'reth Version: 1.5.0'\necho 'extra line'\n"), 0o755))

	i := New(t.TempDir())
	v, err := i.Version(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "reth Version: 1.5.0", v)
}

func TestLatestVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/paradigmxyz/reth/releases/latest", r.URL.Path)
		w.Write([]byte(`{"tag_name":"v1.8.2","prerelease":false,"draft":false}`))
	}))
	defer srv.Close()

	i := New(t.TempDir(), WithBaseURLs(srv.URL, srv.URL))
	assert.Equal(t, "v1.8.2", i.LatestVersion(context.Background()))
}

func TestLatestVersionFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	i := New(t.TempDir(), WithBaseURLs(srv.URL, srv.URL))
	assert.Equal(t, FallbackVersion, i.LatestVersion(context.Background()))

	// Prereleases are skipped too.
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag_name":"v2.0.0-rc.1","prerelease":true}`))
	}))
	defer srv2.Close()

	i = New(t.TempDir(), WithBaseURLs(srv2.URL, srv2.URL))
	assert.Equal(t, FallbackVersion, i.LatestVersion(context.Background()))
}

func tarball(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: name, Mode: 0o755, Size: int64(len(content)), Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestInstall(t *testing.T) {
	archive := tarball(t, "reth", []byte("#!/bin/sh\necho fake\n"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "reth-v1.5.0-")
		w.Write(archive)
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "bin")
	i := New(dir, WithBaseURLs(srv.URL, srv.URL))

	path, err := i.Install(context.Background(), "v1.5.0")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reth"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o111)
}

func TestInstallMissingBinaryInArchive(t *testing.T) {
	archive := tarball(t, "README.md", []byte("nope"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	i := New(filepath.Join(t.TempDir(), "bin"), WithBaseURLs(srv.URL, srv.URL))
	i.retryDelay = time.Millisecond

	_, err := i.Install(context.Background(), "v1.5.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not contain")
}
