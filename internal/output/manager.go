// internal/output/manager.go

// Package output persists run artifacts twice: under a local working root for
// the operator and under a mirrored public network share for the wider team.
// Public writes are best effort; the first failure is latched so the run
// summary can flag that the share is out of date.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/internal/config"
)

// Kind selects the artifact family, which decides the destination folders.
type Kind string

const (
	KindLogs        Kind = "LOGS"
	KindReports     Kind = "RELATORIOS"
	KindJSON        Kind = "JSON"
	KindScreenshots Kind = "SCREENSHOTS"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Manager writes artifacts locally and mirrors them to the public share.
type Manager struct {
	executionID string
	objectName  string
	publicBase  string
	localRoot   string
	startedAt   time.Time
	log         *zap.Logger

	mu        sync.Mutex
	publicOK  bool
	publicErr string
}

// NewManager builds the artifact sink for one run. An unset public base dir
// immediately latches the public failure flag.
func NewManager(executionID string, cfg config.OutputConfig, startedAt time.Time, logger *zap.Logger) *Manager {
	objectName := cfg.ObjectName
	if objectName == "" {
		objectName = "MetaX"
	}
	m := &Manager{
		executionID: executionID,
		objectName:  objectName,
		publicBase:  cfg.PublicBaseDir,
		localRoot:   cfg.LocalRoot,
		startedAt:   startedAt,
		log:         logger.Named("output"),
		publicOK:    true,
	}
	if m.publicBase == "" {
		m.markPublicError("public base dir not configured")
	}
	return m
}

// ExecutionID returns the run identifier stamped into artifact filenames.
func (m *Manager) ExecutionID() string { return m.executionID }

// PublicStatus reports whether every mirrored write succeeded so far, and the
// first error when one did not.
func (m *Manager) PublicStatus() (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.publicOK, m.publicErr
}

// LocalPath returns where a file of the given kind lands locally, without
// writing anything.
func (m *Manager) LocalPath(kind Kind, filename string) string {
	return filepath.Join(m.localDir(kind), filename)
}

// WriteText writes the content locally and mirrors it to the public share.
// The returned path is the local one.
func (m *Manager) WriteText(kind Kind, filename, content string) (string, error) {
	return m.WriteBytes(kind, filename, []byte(content))
}

// WriteBytes is WriteText for binary content.
func (m *Manager) WriteBytes(kind Kind, filename string, data []byte) (string, error) {
	localPath := m.LocalPath(kind, filename)
	if err := atomicWrite(localPath, data); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filename, err)
	}
	m.mirrorPublic(kind, filename, data, m.startedAt)
	return localPath, nil
}

// AppendText appends to the local file and, when writePublic is set, to both
// public mirrors. Used for the run log, which grows during the run.
func (m *Manager) AppendText(kind Kind, filename, content string, writePublic bool) (string, error) {
	localDir := m.localDir(kind)
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", localDir, err)
	}
	localPath := filepath.Join(localDir, filename)
	if err := appendFile(localPath, content); err != nil {
		return "", fmt.Errorf("failed to append to %s: %w", filename, err)
	}
	if writePublic {
		m.appendPublic(kind, filename, content, m.startedAt)
	}
	return localPath, nil
}

// AppendPublicOnly appends to the public mirrors without touching the local
// copy. Used when the local file is managed elsewhere, like the zap log file.
func (m *Manager) AppendPublicOnly(kind Kind, filename, content string) {
	m.appendPublic(kind, filename, content, m.startedAt)
}

// WriteJSON marshals v with two-space indentation and writes it as a JSON
// artifact.
func (m *Manager) WriteJSON(filename string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", filename, err)
	}
	return m.WriteBytes(KindJSON, filename, data)
}

// SaveScreenshot writes a captured screenshot.
func (m *Manager) SaveScreenshot(filename string, data []byte) (string, error) {
	return m.WriteBytes(KindScreenshots, filename, data)
}

func (m *Manager) localDir(kind Kind) string {
	switch kind {
	case KindLogs:
		return filepath.Join(m.localRoot, "logs")
	case KindReports:
		return filepath.Join(m.localRoot, "relatorios")
	case KindJSON:
		return filepath.Join(m.localRoot, "json")
	case KindScreenshots:
		return filepath.Join(m.localRoot, "logs", "screenshots")
	}
	return filepath.Join(m.localRoot, "outros")
}

// publicDir returns the numbered share folder for the kind. The numbering
// matches the project's document tree on the share.
func publicDir(kind Kind) string {
	switch kind {
	case KindLogs:
		return "07_LOGS"
	case KindReports:
		return "08_RELATORIOS"
	case KindJSON:
		return "09_JSON"
	case KindScreenshots:
		return "10_SCREENSHOTS"
	}
	return "99_OUTROS"
}

// publicAliasDir returns the legacy lowercase folder kept for tooling that
// predates the numbered tree.
func publicAliasDir(kind Kind) string {
	switch kind {
	case KindLogs:
		return "logs"
	case KindReports:
		return "relatorios"
	case KindJSON:
		return "json"
	case KindScreenshots:
		return filepath.Join("logs", "screenshots")
	}
	return "outros"
}

// datedDir nests artifacts under <base>/<object>/<year>/<month>.
func (m *Manager) datedDir(base string, when time.Time) string {
	return filepath.Join(base, m.objectName, when.Format("2006"), when.Format("01"))
}

func (m *Manager) mirrorPublic(kind Kind, filename string, data []byte, when time.Time) {
	if m.publicBase == "" {
		return
	}
	m.writePublicBase(publicDir(kind), filename, data, when, true)
	m.writePublicBase(publicAliasDir(kind), filename, data, when, false)
}

func (m *Manager) writePublicBase(base, filename string, data []byte, when time.Time, markError bool) {
	destDir := m.datedDir(filepath.Join(m.publicBase, base), when)
	if err := atomicWrite(filepath.Join(destDir, filename), data); err != nil {
		if markError {
			m.markPublicError(err.Error())
		} else {
			m.log.Warn("Public alias write failed", zap.Error(err))
		}
	}
}

func (m *Manager) appendPublic(kind Kind, filename, content string, when time.Time) {
	if m.publicBase == "" {
		return
	}
	m.appendPublicBase(publicDir(kind), filename, content, when, true)
	m.appendPublicBase(publicAliasDir(kind), filename, content, when, false)
}

func (m *Manager) appendPublicBase(base, filename, content string, when time.Time, markError bool) {
	destDir := m.datedDir(filepath.Join(m.publicBase, base), when)
	if err := os.MkdirAll(destDir, 0o755); err == nil {
		err = appendFile(filepath.Join(destDir, filename), content)
		if err == nil {
			return
		}
		if markError {
			m.markPublicError(err.Error())
		} else {
			m.log.Warn("Public alias append failed", zap.Error(err))
		}
	} else if markError {
		m.markPublicError(err.Error())
	}
}

func (m *Manager) markPublicError(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publicOK = false
	if m.publicErr == "" {
		m.publicErr = message
	}
	m.log.Warn("Public share write failed", zap.String("error", message))
}

// atomicWrite creates the parent dir and writes via a temp file plus rename,
// so a crash never leaves a truncated artifact.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp_*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}
