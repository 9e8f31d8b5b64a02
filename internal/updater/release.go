// internal/updater/release.go
package updater

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/mod/semver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const userAgent = "MetaXgRunner/1.0"

// Release describes one installable version with its package and checksum
// already resolved to local paths.
type Release struct {
	Version string
	ZipPath string
	ShaPath string
	Source  string
}

// latestManifest is the latest.json layout on the network release share.
// The zip_name/sha256_name aliases come from older publishing scripts.
type latestManifest struct {
	Version         string `json:"version"`
	PackageFilename string `json:"package_filename"`
	SHA256Filename  string `json:"sha256_filename"`
	ZipName         string `json:"zip_name"`
	SHA256Name      string `json:"sha256_name"`
}

func (m latestManifest) packageName() string {
	if m.PackageFilename != "" {
		return m.PackageFilename
	}
	return m.ZipName
}

func (m latestManifest) shaName() string {
	if m.SHA256Filename != "" {
		return m.SHA256Filename
	}
	return m.SHA256Name
}

// fetchLatestFromNetwork reads latest.json from the release share and
// resolves the asset paths against it.
func (u *Updater) fetchLatestFromNetwork() (*Release, error) {
	latestPath := filepath.Join(u.cfg.NetworkReleaseDir, "latest.json")
	data, err := os.ReadFile(latestPath)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", latestPath, err)
	}
	// Windows publishing tools sometimes add a BOM.
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var manifest latestManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("invalid latest.json: %w", err)
	}
	if manifest.Version == "" || manifest.packageName() == "" || manifest.shaName() == "" {
		return nil, fmt.Errorf("latest.json missing version/package_filename/sha256_filename")
	}

	return &Release{
		Version: manifest.Version,
		ZipPath: resolveAsset(manifest.packageName(), u.cfg.NetworkReleaseDir),
		ShaPath: resolveAsset(manifest.shaName(), u.cfg.NetworkReleaseDir),
		Source:  "network",
	}, nil
}

func resolveAsset(name, baseDir string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(baseDir, name)
}

// githubRelease is the subset of the GitHub releases API the updater needs.
type githubRelease struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	Assets  []struct {
		Name        string `json:"name"`
		DownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// fetchLatestFromGitHub queries the latest release and downloads the zip and
// checksum assets into a temp dir.
func (u *Updater) fetchLatestFromGitHub(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", u.cfg.GitHubRepo)
	body, err := u.httpGet(ctx, url)
	if err != nil {
		return nil, err
	}

	var rel githubRelease
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, fmt.Errorf("invalid release response: %w", err)
	}
	tag := rel.TagName
	if tag == "" {
		tag = rel.Name
	}
	if tag == "" {
		return nil, fmt.Errorf("github release has no tag")
	}
	version := strings.TrimSpace(strings.TrimPrefix(tag, "v"))
	if !semver.IsValid(canonical(version)) {
		return nil, fmt.Errorf("github release tag %q is not a version", tag)
	}

	var zipURL, zipName, shaURL, shaName string
	exeBase := strings.ToLower(strings.TrimSuffix(u.cfg.ExeName, filepath.Ext(u.cfg.ExeName)))
	for _, asset := range rel.Assets {
		name := strings.ToLower(asset.Name)
		if strings.HasSuffix(name, ".zip") && (zipURL == "" || strings.Contains(name, exeBase)) {
			zipURL, zipName = asset.DownloadURL, asset.Name
		}
		if strings.HasSuffix(name, ".sha256") && (shaURL == "" || strings.Contains(name, exeBase)) {
			shaURL, shaName = asset.DownloadURL, asset.Name
		}
	}
	if zipURL == "" || shaURL == "" {
		return nil, fmt.Errorf("release %s has no .zip/.sha256 assets", version)
	}

	tmpDir, err := os.MkdirTemp("", "metaxg_download_*")
	if err != nil {
		return nil, err
	}
	zipPath := filepath.Join(tmpDir, zipName)
	shaPath := filepath.Join(tmpDir, shaName)
	if err := u.downloadTo(ctx, zipURL, zipPath); err != nil {
		return nil, err
	}
	if err := u.downloadTo(ctx, shaURL, shaPath); err != nil {
		return nil, err
	}

	return &Release{Version: version, ZipPath: zipPath, ShaPath: shaPath, Source: "github"}, nil
}

func (u *Updater) httpGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (u *Updater) downloadTo(ctx context.Context, url, destPath string) error {
	data, err := u.httpGet(ctx, url)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o644)
}

var sha256Pattern = regexp.MustCompile(`\b[a-fA-F0-9]{64}\b`)

// extractSHA256 pulls the first 64-hex token out of a .sha256 file, which may
// also carry the filename or other tool output.
func extractSHA256(text string) (string, error) {
	match := sha256Pattern.FindString(text)
	if match == "" {
		return "", fmt.Errorf("no SHA256 found in checksum file")
	}
	return strings.ToLower(match), nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// validateChecksum compares the package digest against the published one.
func validateChecksum(zipPath, shaPath string) error {
	shaText, err := os.ReadFile(shaPath)
	if err != nil {
		return fmt.Errorf("could not read checksum file: %w", err)
	}
	expected, err := extractSHA256(string(shaText))
	if err != nil {
		return err
	}
	actual, err := sha256File(zipPath)
	if err != nil {
		return fmt.Errorf("could not hash package: %w", err)
	}
	if expected != actual {
		return fmt.Errorf("SHA256 mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}

// canonical prefixes the version for the semver package, which requires the
// leading v.
func canonical(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return ""
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return version
}

// isNewer reports whether latest is strictly newer than current.
// Prerelease ordering follows semver: 1.2.3-rc.1 precedes 1.2.3.
func isNewer(latest, current string) bool {
	return semver.Compare(canonical(latest), canonical(current)) > 0
}

func isPrerelease(version string) bool {
	return semver.Prerelease(canonical(version)) != ""
}
