// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/metaxg-cli/internal/config"
)

// bufferSyncer adapts bytes.Buffer into a zapcore.WriteSyncer so tests can
// inspect console output without touching os.Stdout.
type bufferSyncer struct {
	bytes.Buffer
}

func (b *bufferSyncer) Sync() error { return nil }

func TestInitialize(t *testing.T) {
	t.Run("console format colorizes the level", func(t *testing.T) {
		ResetForTest()
		var buf bufferSyncer

		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "metaxg-test",
		}, &buf)

		GetLogger().Info("registro iniciado")

		out := buf.String()
		assert.Contains(t, out, "INFO")
		assert.Contains(t, out, "registro iniciado")
		assert.Contains(t, out, colorGreen)
		assert.Contains(t, out, colorReset)
	})

	t.Run("json format emits structured entries", func(t *testing.T) {
		ResetForTest()
		var buf bufferSyncer

		Initialize(config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "metaxg-json",
		}, &buf)

		GetLogger().Warn("cpf invalido", zap.String("cpf", "123"))

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "warn", entry["level"])
		assert.Equal(t, "metaxg-json", entry["logger"])
		assert.Equal(t, "cpf invalido", entry["msg"])
		assert.Equal(t, "123", entry["cpf"])
	})

	t.Run("writes to a log file if configured", func(t *testing.T) {
		ResetForTest()
		logFile := filepath.Join(t.TempDir(), "metaxg.log")

		Initialize(config.LoggerConfig{
			Level:   "debug",
			Format:  "json",
			LogFile: logFile,
			MaxSize: 1,
		}, zapcore.AddSync(&bufferSyncer{}))

		GetLogger().Error("falha ao salvar")
		Sync()

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "falha ao salvar")
	})

	t.Run("only initializes once", func(t *testing.T) {
		ResetForTest()
		var buf bufferSyncer

		Initialize(config.LoggerConfig{Level: "info", ServiceName: "first"}, &buf)
		first := GetLogger()

		Initialize(config.LoggerConfig{Level: "debug", ServiceName: "second"}, &buf)
		second := GetLogger()

		assert.Equal(t, first, second)
		second.Info("still first")
		assert.Contains(t, buf.String(), "first")
		assert.NotContains(t, buf.String(), "second.")
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("returns a fallback before initialization", func(t *testing.T) {
		ResetForTest()
		require.NotNil(t, GetLogger())
	})

	t.Run("returns the stored logger after initialization", func(t *testing.T) {
		ResetForTest()
		Initialize(config.LoggerConfig{Level: "info", ServiceName: "global"}, zapcore.AddSync(&bufferSyncer{}))
		assert.Equal(t, globalLogger.Load(), GetLogger())
	})
}
