// Package appupdate compares the running build with the latest published
// release.
package appupdate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	binaryName              = "aggscope"
	defaultLatestReleaseURL = "https://api.github.com/repos/janekbaraniewski/aggscope/releases/latest"
	defaultRequestTimeout   = 1500 * time.Millisecond
	githubTokenEnvVar       = "AGGSCOPE_GITHUB_TOKEN"
)

type InstallMethod string

const (
	InstallMethodUnknown   InstallMethod = "unknown"
	InstallMethodHomebrew  InstallMethod = "homebrew"
	InstallMethodGoInstall InstallMethod = "go_install"
)

type CheckOptions struct {
	CurrentVersion   string
	ExecutablePath   string
	LatestReleaseURL string
	Timeout          time.Duration
	HTTPClient       *http.Client
}

type Result struct {
	UpdateAvailable bool
	CurrentVersion  string
	LatestVersion   string
	InstallMethod   InstallMethod
	UpgradeHint     string
}

// Check fetches the latest release tag. Development and pre-release builds
// are never compared and return a result without LatestVersion.
func Check(ctx context.Context, opts CheckOptions) (Result, error) {
	current := normalizeReleaseVersion(opts.CurrentVersion)
	method := detectInstallMethod(resolveExecutablePath(opts.ExecutablePath))

	result := Result{
		CurrentVersion: current,
		InstallMethod:  method,
		UpgradeHint:    upgradeHint(method),
	}
	if current == "" {
		return result, nil
	}

	latest, err := fetchLatestReleaseVersion(ctx, opts, current)
	if err != nil {
		return result, err
	}
	result.LatestVersion = latest
	result.UpdateAvailable = semver.Compare(latest, current) > 0
	return result, nil
}

func fetchLatestReleaseVersion(ctx context.Context, opts CheckOptions, current string) (string, error) {
	latestURL := strings.TrimSpace(opts.LatestReleaseURL)
	if latestURL == "" {
		latestURL = defaultLatestReleaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, latestURL, nil)
	if err != nil {
		return "", fmt.Errorf("appupdate: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", binaryName+"/"+current)
	if token := strings.TrimSpace(os.Getenv(githubTokenEnvVar)); token != "" && isGitHubAPI(latestURL) {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("appupdate: fetch latest release: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("appupdate: fetch latest release: HTTP %d", resp.StatusCode)
	}

	var payload struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("appupdate: decode release: %w", err)
	}
	latest := normalizeReleaseVersion(payload.TagName)
	if latest == "" {
		return "", fmt.Errorf("appupdate: latest release tag is not a stable semver: %q", payload.TagName)
	}
	return latest, nil
}

func resolveExecutablePath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return normalizePath(p)
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil && resolved != "" {
		exe = resolved
	}
	return normalizePath(exe)
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return strings.ToLower(filepath.ToSlash(filepath.Clean(path)))
}

func detectInstallMethod(path string) InstallMethod {
	path = normalizePath(path)
	switch {
	case path == "":
		return InstallMethodUnknown
	case strings.Contains(path, "/cellar/"+binaryName+"/"):
		return InstallMethodHomebrew
	case isGoBinPath(path):
		return InstallMethodGoInstall
	}
	return InstallMethodUnknown
}

func isGoBinPath(path string) bool {
	candidates := []string{os.Getenv("GOBIN")}
	for _, gp := range filepath.SplitList(os.Getenv("GOPATH")) {
		candidates = append(candidates, filepath.Join(gp, "bin"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "go", "bin"))
	}
	if strings.Contains(path, "/go/bin/") {
		return true
	}
	for _, dir := range candidates {
		if dir = normalizePath(dir); dir != "" && filepath.ToSlash(filepath.Dir(path)) == dir {
			return true
		}
	}
	return false
}

func upgradeHint(method InstallMethod) string {
	switch method {
	case InstallMethodHomebrew:
		return "brew upgrade janekbaraniewski/tap/" + binaryName
	case InstallMethodGoInstall:
		return "go install github.com/janekbaraniewski/aggscope/cmd/aggscope@latest"
	}
	return "download the latest release from https://github.com/janekbaraniewski/aggscope/releases"
}

// normalizeReleaseVersion returns the canonical "vX.Y.Z" form of a stable
// release, or "" for anything else.
func normalizeReleaseVersion(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) || semver.Prerelease(v) != "" || semver.Build(v) != "" {
		return ""
	}
	return semver.Canonical(v)
}

func isGitHubAPI(rawURL string) bool {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Scheme, "https") && strings.EqualFold(parsed.Hostname(), "api.github.com")
}
