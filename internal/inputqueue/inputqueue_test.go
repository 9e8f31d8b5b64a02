// internal/inputqueue/inputqueue_test.go
package inputqueue

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReadNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nomes.txt")
	content := "Joao da Silva\n\n# comentario\n  maria de souza  \nJOAO DA SILVA\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	names, err := ReadNames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"JOAO DA SILVA", "MARIA DE SOUZA"}, names)
}

func TestReadNamesMissingFile(t *testing.T) {
	_, err := ReadNames(filepath.Join(t.TempDir(), "nao_existe.txt"))
	assert.Error(t, err)
}

func TestAcquireLock(t *testing.T) {
	logger := zap.NewNop()

	t.Run("acquire and release", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fila.lock")

		release, err := AcquireLock(path, 30*time.Minute, logger)
		require.NoError(t, err)

		_, err = os.Stat(path)
		assert.NoError(t, err, "lock file exists while held")

		release()
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err), "release removes the lock file")
	})

	t.Run("fresh lock blocks a second run", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fila.lock")

		release, err := AcquireLock(path, 30*time.Minute, logger)
		require.NoError(t, err)
		defer release()

		_, err = AcquireLock(path, 30*time.Minute, logger)
		assert.ErrorIs(t, err, ErrLocked)
	})

	t.Run("stale lock is evicted", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fila.lock")
		require.NoError(t, os.WriteFile(path, []byte("velho\n"), 0o644))
		old := time.Now().Add(-time.Hour)
		require.NoError(t, os.Chtimes(path, old, old))

		release, err := AcquireLock(path, 30*time.Minute, logger)
		require.NoError(t, err)
		defer release()
	})
}
