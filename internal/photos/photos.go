// internal/photos/photos.go

// Package photos locates and prepares employee ID photos for upload. The
// portal only accepts small JPEGs, so every photo is resized to the portal's
// 300x400 standard and recompressed until it fits the size cap.
package photos

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/xkilldash9x/metaxg-cli/internal/format"
)

const (
	portalWidth  = 300
	portalHeight = 400

	qualityStart = 85
	qualityFloor = 20
	qualityStep  = 5
)

// FindByCPF scans the photo folder for a file whose name contains the bare
// CPF digits. Only image extensions count.
func FindByCPF(dir, cpf string) (string, bool) {
	digits := format.DigitsOnly(cpf)
	if digits == "" {
		return "", false
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if strings.Contains(name, digits) && isImageFile(name) {
			return filepath.Join(dir, entry.Name()), true
		}
	}
	return "", false
}

func isImageFile(name string) bool {
	switch filepath.Ext(name) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// Shrink resizes the photo to 300x400 and recompresses it as JPEG, lowering
// the quality until the result fits under maxSizeKB. It returns the path of
// a temporary file; the original is never touched.
func Shrink(srcPath string, maxSizeKB int, logger *zap.Logger) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("could not open photo: %w", err)
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return "", fmt.Errorf("could not decode photo %s: %w", filepath.Base(srcPath), err)
	}

	resized := image.NewRGBA(image.Rect(0, 0, portalWidth, portalHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Over, nil)

	tmp, err := os.CreateTemp("", "metaxg_foto_*.jpg")
	if err != nil {
		return "", fmt.Errorf("could not create temp photo: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	for quality := qualityStart; quality >= qualityFloor; quality -= qualityStep {
		if err := encodeJPEG(tmpPath, resized, quality); err != nil {
			os.Remove(tmpPath)
			return "", err
		}
		info, err := os.Stat(tmpPath)
		if err != nil {
			os.Remove(tmpPath)
			return "", fmt.Errorf("could not stat temp photo: %w", err)
		}
		sizeKB := float64(info.Size()) / 1024
		if sizeKB <= float64(maxSizeKB) {
			logger.Info("Photo ready for upload",
				zap.String("source", filepath.Base(srcPath)),
				zap.Float64("size_kb", sizeKB),
				zap.Int("quality", quality))
			return tmpPath, nil
		}
	}

	os.Remove(tmpPath)
	return "", fmt.Errorf("photo %s still above %dKB at minimum quality", filepath.Base(srcPath), maxSizeKB)
}

func encodeJPEG(path string, img image.Image, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not write temp photo: %w", err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("could not encode photo: %w", err)
	}
	return nil
}
