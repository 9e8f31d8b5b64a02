// internal/updater/updater_test.go
package updater

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/internal/config"
)

func TestVersionComparison(t *testing.T) {
	cases := []struct {
		latest, current string
		newer           bool
	}{
		{"1.2.3", "1.2.2", true},
		{"1.2.3", "1.2.3", false},
		{"1.2.2", "1.2.3", false},
		{"v2.0.0", "1.9.9", true},
		{"1.2.3", "1.2.3-rc.1", true},
		{"1.2.3-rc.1", "1.2.3", false},
		{"1.2.3-rc.2", "1.2.3-rc.1", true},
		{"1.2.3-beta", "1.2.3-alpha", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.newer, isNewer(tc.latest, tc.current),
			"isNewer(%q, %q)", tc.latest, tc.current)
	}
}

func TestIsPrerelease(t *testing.T) {
	assert.True(t, isPrerelease("1.2.3-rc.1"))
	assert.False(t, isPrerelease("1.2.3"))
	assert.False(t, isPrerelease("v2.0.0"))
}

func TestExtractSHA256(t *testing.T) {
	digest := "a3f5" + string(bytes.Repeat([]byte("0"), 60))

	t.Run("bare digest", func(t *testing.T) {
		got, err := extractSHA256(digest)
		require.NoError(t, err)
		assert.Equal(t, digest, got)
	})

	t.Run("sha256sum output format", func(t *testing.T) {
		got, err := extractSHA256(digest + "  metaxg.zip\n")
		require.NoError(t, err)
		assert.Equal(t, digest, got)
	})

	t.Run("uppercase is normalized", func(t *testing.T) {
		got, err := extractSHA256("A3F5" + string(bytes.Repeat([]byte("0"), 60)))
		require.NoError(t, err)
		assert.Equal(t, digest, got)
	})

	t.Run("missing digest errors", func(t *testing.T) {
		_, err := extractSHA256("no digest here")
		assert.Error(t, err)
	})
}

// writeReleaseZip creates a zip with the exe either at the root or inside a
// wrapper folder, plus a matching .sha256 file.
func writeReleaseZip(t *testing.T, dir, exeName, wrapper string) (zipPath, shaPath string) {
	t.Helper()
	zipPath = filepath.Join(dir, "metaxg.zip")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry := exeName
	if wrapper != "" {
		entry = wrapper + "/" + exeName
	}
	w, err := zw.Create(entry)
	require.NoError(t, err)
	_, err = w.Write([]byte("binary"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(zipPath, buf.Bytes(), 0o644))

	digest := sha256.Sum256(buf.Bytes())
	shaPath = filepath.Join(dir, "metaxg.zip.sha256")
	content := fmt.Sprintf("%x  metaxg.zip\n", digest)
	require.NoError(t, os.WriteFile(shaPath, []byte(content), 0o644))
	return zipPath, shaPath
}

func TestValidateChecksum(t *testing.T) {
	dir := t.TempDir()
	zipPath, shaPath := writeReleaseZip(t, dir, "metaxg.exe", "")

	assert.NoError(t, validateChecksum(zipPath, shaPath))

	require.NoError(t, os.WriteFile(zipPath, []byte("tampered"), 0o644))
	assert.Error(t, validateChecksum(zipPath, shaPath))
}

func TestNormalizeStagingLayout(t *testing.T) {
	t.Run("exe at root is untouched", func(t *testing.T) {
		staging := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(staging, "metaxg.exe"), []byte("x"), 0o755))
		assert.NoError(t, normalizeStagingLayout(staging, "metaxg.exe"))
	})

	t.Run("single wrapper folder is flattened", func(t *testing.T) {
		staging := t.TempDir()
		inner := filepath.Join(staging, "metaxg-1.2.3")
		require.NoError(t, os.MkdirAll(inner, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(inner, "metaxg.exe"), []byte("x"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(inner, "config.yaml"), []byte("y"), 0o644))

		require.NoError(t, normalizeStagingLayout(staging, "metaxg.exe"))
		assert.FileExists(t, filepath.Join(staging, "metaxg.exe"))
		assert.FileExists(t, filepath.Join(staging, "config.yaml"))
	})

	t.Run("missing exe errors", func(t *testing.T) {
		staging := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(staging, "leia-me.txt"), []byte("x"), 0o644))
		assert.Error(t, normalizeStagingLayout(staging, "metaxg.exe"))
	})
}

func newTestUpdater(t *testing.T, networkDir string) *Updater {
	t.Helper()
	return New(config.UpdaterConfig{
		InstallDir:        t.TempDir(),
		NetworkReleaseDir: networkDir,
		ExeName:           "metaxg.exe",
	}, zap.NewNop())
}

func TestUpdateIfNewerInstallsFromNetwork(t *testing.T) {
	releaseDir := t.TempDir()
	writeReleaseZip(t, releaseDir, "metaxg.exe", "metaxg-2.0.0")
	latest := `{"version": "2.0.0", "package_filename": "metaxg.zip", "sha256_filename": "metaxg.zip.sha256"}`
	require.NoError(t, os.WriteFile(filepath.Join(releaseDir, "latest.json"), []byte(latest), 0o644))

	u := newTestUpdater(t, releaseDir)
	status, version := u.UpdateIfNewer(context.Background())

	assert.Equal(t, StatusOK, status)
	assert.Equal(t, "2.0.0", version)
	assert.Equal(t, "2.0.0", u.InstalledVersion())
	assert.FileExists(t, filepath.Join(u.currentDir(), "metaxg.exe"))
}

func TestUpdateIfNewerSkipsSameVersion(t *testing.T) {
	releaseDir := t.TempDir()
	writeReleaseZip(t, releaseDir, "metaxg.exe", "")
	latest := `{"version": "1.0.0", "package_filename": "metaxg.zip", "sha256_filename": "metaxg.zip.sha256"}`
	require.NoError(t, os.WriteFile(filepath.Join(releaseDir, "latest.json"), []byte(latest), 0o644))

	u := newTestUpdater(t, releaseDir)
	require.NoError(t, os.MkdirAll(u.cfg.InstallDir, 0o755))
	require.NoError(t, os.WriteFile(u.versionFile(), []byte("1.0.0"), 0o644))

	status, version := u.UpdateIfNewer(context.Background())
	assert.Equal(t, StatusSkipped, status)
	assert.Equal(t, "1.0.0", version)
}

func TestUpdateIfNewerRejectsBadChecksum(t *testing.T) {
	releaseDir := t.TempDir()
	zipPath, _ := writeReleaseZip(t, releaseDir, "metaxg.exe", "")
	require.NoError(t, os.WriteFile(zipPath, []byte("tampered"), 0o644))
	latest := `{"version": "9.0.0", "package_filename": "metaxg.zip", "sha256_filename": "metaxg.zip.sha256"}`
	require.NoError(t, os.WriteFile(filepath.Join(releaseDir, "latest.json"), []byte(latest), 0o644))

	u := newTestUpdater(t, releaseDir)
	status, version := u.UpdateIfNewer(context.Background())

	assert.Equal(t, StatusFailed, status)
	assert.Equal(t, "0.0.0", version)
	assert.NoDirExists(t, u.currentDir(), "nothing is installed on checksum failure")
}

func TestInstalledVersionDefaults(t *testing.T) {
	u := newTestUpdater(t, "")
	assert.Equal(t, "0.0.0", u.InstalledVersion())
}

func TestFetchLatestPrefersLegacyAliases(t *testing.T) {
	releaseDir := t.TempDir()
	writeReleaseZip(t, releaseDir, "metaxg.exe", "")
	latest := `{"version": "1.5.0", "zip_name": "metaxg.zip", "sha256_name": "metaxg.zip.sha256"}`
	require.NoError(t, os.WriteFile(filepath.Join(releaseDir, "latest.json"), []byte(latest), 0o644))

	u := newTestUpdater(t, releaseDir)
	rel, err := u.FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", rel.Version)
	assert.Equal(t, filepath.Join(releaseDir, "metaxg.zip"), rel.ZipPath)
}
