// internal/updater/staging.go
package updater

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extractZip unpacks the package into destDir, recreating it from scratch.
func extractZip(zipPath, destDir string) error {
	if err := os.RemoveAll(destDir); err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("could not open package: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if err := extractOne(file, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractOne(file *zip.File, destDir string) error {
	destPath := filepath.Join(destDir, file.Name)
	// Reject entries that escape the staging dir.
	if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("package entry %q escapes staging dir", file.Name)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(destPath, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, file.Mode())
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// normalizeStagingLayout flattens a zip that wraps everything in a single
// top-level folder, so the exe always sits directly under staging.
func normalizeStagingLayout(stagingDir, exeName string) error {
	if exists(filepath.Join(stagingDir, exeName)) {
		return nil
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return err
	}
	var visible []os.DirEntry
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			visible = append(visible, e)
		}
	}

	if len(visible) == 1 && visible[0].IsDir() {
		inner := filepath.Join(stagingDir, visible[0].Name())
		if exists(filepath.Join(inner, exeName)) {
			tmpDir, err := os.MkdirTemp("", "metaxg_stage_*")
			if err != nil {
				return err
			}
			defer os.RemoveAll(tmpDir)

			if err := moveContents(inner, tmpDir); err != nil {
				return err
			}
			if err := os.RemoveAll(stagingDir); err != nil {
				return err
			}
			if err := os.MkdirAll(stagingDir, 0o755); err != nil {
				return err
			}
			return moveContents(tmpDir, stagingDir)
		}
	}

	return fmt.Errorf("exe %s not found in staging", exeName)
}

func moveContents(srcDir, destDir string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		src := filepath.Join(srcDir, entry.Name())
		dst := filepath.Join(destDir, entry.Name())
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}
	return nil
}
