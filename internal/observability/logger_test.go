package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/quixlabs/loginforge/internal/config"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer.
type syncBuffer struct {
	bytes.Buffer
}

func (b *syncBuffer) Sync() error { return nil }

func TestInitialize(t *testing.T) {
	t.Run("console format colorizes the level", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "test-service",
		}, zapcore.Lock(&buf))

		GetLogger().Info("hello from the test")

		out := buf.String()
		assert.Contains(t, out, "INFO")
		assert.Contains(t, out, "hello from the test")
		assert.Contains(t, out, colorGreen)
		assert.Contains(t, out, "test-service.")
	})

	t.Run("json format emits structured entries", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		Initialize(config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "test-service",
		}, zapcore.Lock(&buf))

		GetLogger().Warn("structured warning")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "structured warning", entry["msg"])
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		Initialize(config.LoggerConfig{
			Level:       "chatty",
			Format:      "json",
			ServiceName: "test-service",
		}, zapcore.Lock(&buf))

		GetLogger().Debug("should be suppressed")
		GetLogger().Info("should appear")

		out := buf.String()
		assert.NotContains(t, out, "should be suppressed")
		assert.Contains(t, out, "should appear")
	})

	t.Run("file sink writes rotating json log", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer
		logFile := filepath.Join(t.TempDir(), "loginforge.log")

		Initialize(config.LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "test-service",
			LogFile:     logFile,
			MaxSize:     1,
		}, zapcore.Lock(&buf))

		GetLogger().Info("to the file as well")
		Sync()

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to the file as well")
	})
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	logger := GetLogger()
	require.NotNil(t, logger)
}
