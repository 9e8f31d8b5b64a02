// internal/updater/updater.go

// Package updater keeps the installed binary current before launching it.
// Releases arrive either on a network share (latest.json plus zip/sha256) or
// as GitHub release assets; the install swaps current/backup directories so a
// failed update always rolls back to the running version.
package updater

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/internal/config"
)

// Status is the outcome of one update attempt.
type Status string

const (
	// StatusOK means the new version is installed.
	StatusOK Status = "ok"
	// StatusDeferred means the running exe blocked the swap; next launch
	// retries.
	StatusDeferred Status = "deferred"
	// StatusFailed means the install failed and the previous version was
	// restored.
	StatusFailed Status = "failed"
	// StatusSkipped means no update was needed or available.
	StatusSkipped Status = "skipped"
)

// Updater drives the check/download/install/launch cycle.
type Updater struct {
	cfg        config.UpdaterConfig
	httpClient *http.Client
	log        *zap.Logger
}

func New(cfg config.UpdaterConfig, logger *zap.Logger) *Updater {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Updater{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.Named("updater"),
	}
}

// install tree layout under InstallDir.
func (u *Updater) appRoot() string     { return filepath.Join(u.cfg.InstallDir, "app") }
func (u *Updater) currentDir() string  { return filepath.Join(u.appRoot(), "current") }
func (u *Updater) stagingDir() string  { return filepath.Join(u.appRoot(), "staging") }
func (u *Updater) backupDir() string   { return filepath.Join(u.appRoot(), "backup") }
func (u *Updater) versionFile() string { return filepath.Join(u.cfg.InstallDir, "version.txt") }

// InstalledVersion reads version.txt, defaulting to 0.0.0 when absent.
func (u *Updater) InstalledVersion() string {
	data, err := os.ReadFile(u.versionFile())
	if err != nil {
		return "0.0.0"
	}
	version := strings.TrimSpace(string(data))
	if version == "" {
		return "0.0.0"
	}
	return version
}

// FetchLatest resolves the newest available release: network share first,
// GitHub as fallback. Prereleases are dropped unless allowed.
func (u *Updater) FetchLatest(ctx context.Context) (*Release, error) {
	var errs []string

	if u.cfg.NetworkReleaseDir != "" {
		rel, err := u.fetchLatestFromNetwork()
		if err == nil {
			if rel.Version != "" && isPrerelease(rel.Version) && !u.cfg.AllowPrerelease {
				u.log.Warn("Ignoring prerelease from network", zap.String("version", rel.Version))
			} else {
				u.log.Info("Latest release (network)", zap.String("version", rel.Version))
				return rel, nil
			}
		} else {
			u.log.Warn("Network release lookup failed", zap.Error(err))
			errs = append(errs, err.Error())
		}
	}

	if u.cfg.GitHubRepo != "" {
		rel, err := u.fetchLatestFromGitHub(ctx)
		if err == nil {
			if isPrerelease(rel.Version) && !u.cfg.AllowPrerelease {
				u.log.Warn("Ignoring prerelease from GitHub", zap.String("version", rel.Version))
			} else {
				u.log.Info("Latest release (GitHub)", zap.String("version", rel.Version))
				return rel, nil
			}
		} else {
			u.log.Warn("GitHub release lookup failed", zap.Error(err))
			errs = append(errs, err.Error())
		}
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("no release source configured or only prereleases available")
	}
	return nil, fmt.Errorf("no release available: %s", strings.Join(errs, "; "))
}

// UpdateIfNewer installs the latest release when it is newer than the
// installed one. Any failure leaves the current install runnable.
func (u *Updater) UpdateIfNewer(ctx context.Context) (Status, string) {
	current := u.InstalledVersion()
	u.log.Info("Installed version", zap.String("version", current))

	latest, err := u.FetchLatest(ctx)
	if err != nil {
		u.log.Warn("No latest release; running current version", zap.Error(err))
		return StatusSkipped, current
	}
	if !isNewer(latest.Version, current) {
		u.log.Info("No update needed")
		return StatusSkipped, current
	}

	u.log.Info("Update available",
		zap.String("from", current), zap.String("to", latest.Version),
		zap.String("source", latest.Source))

	if err := validateChecksum(latest.ZipPath, latest.ShaPath); err != nil {
		u.log.Error("Checksum validation failed; running current version", zap.Error(err))
		return StatusFailed, current
	}
	u.log.Info("SHA256 validated")

	status := u.install(latest)
	switch status {
	case StatusOK:
		return StatusOK, latest.Version
	case StatusDeferred:
		u.log.Warn("Exe in use; update deferred to next launch")
	default:
		u.log.Warn("Install failed; running current version")
	}
	return status, current
}

// install extracts the package to staging and swaps it into place, keeping
// the previous version as backup for rollback.
func (u *Updater) install(rel *Release) Status {
	staging := u.stagingDir()
	current := u.currentDir()
	backup := u.backupDir()

	u.log.Info("Extracting package to staging", zap.String("dir", staging))
	if err := extractZip(rel.ZipPath, staging); err != nil {
		u.log.Error("Extraction failed", zap.Error(err))
		return StatusFailed
	}
	if err := normalizeStagingLayout(staging, u.cfg.ExeName); err != nil {
		u.log.Error("Package layout invalid", zap.Error(err))
		os.RemoveAll(staging)
		return StatusFailed
	}

	backupMade := false
	rollback := func() {
		if backupMade && exists(backup) && !exists(current) {
			u.log.Warn("Rolling back to previous version")
			if err := os.Rename(backup, current); err != nil {
				u.log.Error("Rollback failed", zap.Error(err))
			} else {
				u.log.Warn("Rollback finished")
			}
		}
	}

	if exists(backup) {
		os.RemoveAll(backup)
	}
	if exists(current) {
		u.log.Info("Moving current to backup")
		if err := os.Rename(current, backup); err != nil {
			if isInUseError(err) {
				os.RemoveAll(staging)
				return StatusDeferred
			}
			u.log.Error("Could not move current aside", zap.Error(err))
			os.RemoveAll(staging)
			return StatusFailed
		}
		backupMade = true
	}

	u.log.Info("Moving staging to current")
	if err := os.Rename(staging, current); err != nil {
		os.RemoveAll(staging)
		if isInUseError(err) {
			rollback()
			return StatusDeferred
		}
		u.log.Error("Could not activate new version", zap.Error(err))
		rollback()
		return StatusFailed
	}

	if err := os.WriteFile(u.versionFile(), []byte(rel.Version), 0o644); err != nil {
		u.log.Warn("Could not record installed version", zap.Error(err))
	}
	u.log.Info("Install finished", zap.String("version", rel.Version))
	return StatusOK
}

// RunApp executes the installed binary forwarding args and stdio, returning
// the child's exit code.
func (u *Updater) RunApp(ctx context.Context, args []string) (int, error) {
	exePath := filepath.Join(u.currentDir(), u.cfg.ExeName)
	if !exists(exePath) {
		return 1, fmt.Errorf("installed exe not found: %s", exePath)
	}

	u.log.Info("Launching", zap.String("exe", exePath), zap.Strings("args", args))
	cmd := exec.CommandContext(ctx, exePath, args...)
	cmd.Dir = u.currentDir()
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return 1, fmt.Errorf("could not run %s: %w", exePath, err)
}

// isInUseError matches the Windows sharing-violation and access-denied
// failures seen when the exe being replaced is still running.
func isInUseError(err error) bool {
	if err == nil {
		return false
	}
	if os.IsPermission(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "being used by another process") ||
		strings.Contains(msg, "Access is denied")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
