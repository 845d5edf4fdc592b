// Package installer resolves, verifies, and installs the reth binary.
package installer

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	// GitHubAPIBaseURL is the base URL for the GitHub API.
	GitHubAPIBaseURL = "https://api.github.com"

	// DownloadBaseURL is where release tarballs are published.
	DownloadBaseURL = "https://github.com/paradigmxyz/reth/releases/download"

	// FallbackVersion is used when the release lookup fails.
	FallbackVersion = "v1.5.0"

	// MaxRetries is the maximum number of download retry attempts.
	MaxRetries = 3

	// RetryDelay is the delay between retry attempts.
	RetryDelay = 5 * time.Second

	// VersionTimeout bounds the `reth --version` check.
	VersionTimeout = 10 * time.Second
)

// ErrNotInstalled means no usable binary was found anywhere.
var ErrNotInstalled = errors.New("reth binary not found")

type githubRelease struct {
	TagName    string `json:"tag_name"`
	Prerelease bool   `json:"prerelease"`
	Draft      bool   `json:"draft"`
}

// Installer finds and installs the node binary.
type Installer struct {
	httpClient  *http.Client
	apiBaseURL  string
	downloadURL string
	installDir  string
	retryDelay  time.Duration
	logger      *slog.Logger
}

// Option configures an Installer.
type Option func(*Installer)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(i *Installer) { i.httpClient = client }
}

// WithBaseURLs overrides the GitHub endpoints, used in tests.
func WithBaseURLs(api, download string) Option {
	return func(i *Installer) {
		i.apiBaseURL = api
		i.downloadURL = download
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Installer) { i.logger = logger }
}

// New creates an installer targeting installDir.
func New(installDir string, opts ...Option) *Installer {
	i := &Installer{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		apiBaseURL:  GitHubAPIBaseURL,
		downloadURL: DownloadBaseURL,
		installDir:  installDir,
		retryDelay:  RetryDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// InstalledPath is where Install places the binary.
func (i *Installer) InstalledPath() string {
	return filepath.Join(i.installDir, "reth")
}

// Resolve finds a usable binary: the explicit override first, then the
// install directory, then PATH.
func (i *Installer) Resolve(explicit string) (string, error) {
	if explicit != "" {
		if err := checkExecutable(explicit); err != nil {
			return "", fmt.Errorf("configured binary %s: %w", explicit, err)
		}
		return explicit, nil
	}

	if installed := i.InstalledPath(); checkExecutable(installed) == nil {
		return installed, nil
	}

	if path, err := exec.LookPath("reth"); err == nil {
		return path, nil
	}

	return "", ErrNotInstalled
}

// Version runs `--version` on the binary with a bounded timeout and
// returns the first output line.
func (i *Installer) Version(ctx context.Context, binaryPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, VersionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binaryPath, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to run %s --version: %w", binaryPath, err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line), nil
}

// LatestVersion asks GitHub for the newest stable release tag. Any
// failure falls back to a known-good version rather than blocking the
// install.
func (i *Installer) LatestVersion(ctx context.Context) string {
	url := i.apiBaseURL + "/repos/paradigmxyz/reth/releases/latest"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FallbackVersion
	}
	req.Header.Set("User-Agent", "nodeward/1.0")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		i.logger.Warn("release lookup failed, using fallback version",
			"fallback", FallbackVersion, "error", err)
		return FallbackVersion
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		i.logger.Warn("release lookup failed, using fallback version",
			"fallback", FallbackVersion, "status", resp.StatusCode)
		return FallbackVersion
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		i.logger.Warn("failed to parse release response, using fallback version",
			"fallback", FallbackVersion, "error", err)
		return FallbackVersion
	}
	if release.Prerelease || release.Draft || release.TagName == "" {
		return FallbackVersion
	}

	return release.TagName
}

// Install downloads and extracts the given release version, returning
// the installed binary path. Empty version means the latest release.
func (i *Installer) Install(ctx context.Context, version string) (string, error) {
	if version == "" {
		version = i.LatestVersion(ctx)
	}

	triple, err := platformTriple()
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/reth-%s-%s.tar.gz", i.downloadURL, version, version, triple)
	i.logger.Info("installing node binary", "version", version, "url", url)

	if err := os.MkdirAll(i.installDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create install directory: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		if attempt > 1 {
			i.logger.Warn("retrying download", "attempt", attempt, "max", MaxRetries)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(i.retryDelay):
			}
		}

		if err := i.downloadAndExtract(ctx, url); err != nil {
			lastErr = err
			continue
		}

		path := i.InstalledPath()
		if err := os.Chmod(path, 0o755); err != nil {
			return "", fmt.Errorf("failed to mark binary executable: %w", err)
		}
		return path, nil
	}

	return "", fmt.Errorf("failed to download release after %d attempts: %w", MaxRetries, lastErr)
}

func (i *Installer) downloadAndExtract(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}

		if hdr.Typeflag != tar.TypeReg || filepath.Base(hdr.Name) != "reth" {
			continue
		}

		dst, err := os.OpenFile(i.InstalledPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
		if err != nil {
			return fmt.Errorf("failed to create binary: %w", err)
		}
		if _, err := io.Copy(dst, tr); err != nil {
			dst.Close()
			return fmt.Errorf("failed to extract binary: %w", err)
		}
		return dst.Close()
	}

	return errors.New("archive did not contain a reth binary")
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

// platformTriple maps the build platform to reth's release naming.
func platformTriple() (string, error) {
	switch runtime.GOOS + "/" + runtime.GOARCH {
	case "linux/amd64":
		return "x86_64-unknown-linux-gnu", nil
	case "linux/arm64":
		return "aarch64-unknown-linux-gnu", nil
	case "darwin/amd64":
		return "x86_64-apple-darwin", nil
	case "darwin/arm64":
		return "aarch64-apple-darwin", nil
	case "windows/amd64":
		return "x86_64-pc-windows-gnu", nil
	default:
		return "", fmt.Errorf("no release build for %s/%s", runtime.GOOS, runtime.GOARCH)
	}
}
