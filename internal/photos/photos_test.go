// internal/photos/photos_test.go
package photos

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeTestImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	switch filepath.Ext(path) {
	case ".png":
		require.NoError(t, png.Encode(f, img))
	default:
		require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 95}))
	}
}

func TestFindByCPF(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "00_FOTO_12345678901.jpg"), 10, 10)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "12345678902.pdf"), []byte("%PDF"), 0o644))

	t.Run("matches bare digits inside the filename", func(t *testing.T) {
		path, ok := FindByCPF(dir, "123.456.789-01")
		require.True(t, ok)
		assert.Equal(t, filepath.Join(dir, "00_FOTO_12345678901.jpg"), path)
	})

	t.Run("non-image extensions are ignored", func(t *testing.T) {
		_, ok := FindByCPF(dir, "12345678902")
		assert.False(t, ok)
	})

	t.Run("missing folder returns not found", func(t *testing.T) {
		_, ok := FindByCPF(filepath.Join(dir, "nope"), "12345678901")
		assert.False(t, ok)
	})

	t.Run("empty cpf returns not found", func(t *testing.T) {
		_, ok := FindByCPF(dir, "abc")
		assert.False(t, ok)
	})
}

func TestShrink(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "foto_grande.png")
	writeTestImage(t, srcPath, 1200, 1600)

	outPath, err := Shrink(srcPath, 40, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(outPath) })

	info, err := os.Stat(outPath)
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(40*1024))

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 400, cfg.Height)
}

func TestShrinkRejectsNonImages(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "documento.jpg")
	require.NoError(t, os.WriteFile(srcPath, []byte("not an image"), 0o644))

	_, err := Shrink(srcPath, 40, zap.NewNop())
	assert.Error(t, err)
}

func TestShrinkMissingFile(t *testing.T) {
	_, err := Shrink(filepath.Join(t.TempDir(), "missing.jpg"), 40, zap.NewNop())
	assert.Error(t, err)
}
