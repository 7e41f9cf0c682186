package loggy

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesKeyValues(t *testing.T) {
	var buf bytes.Buffer
	logger := New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.With("component", "assist").Info("analysis finished", "suggestions", 3)

	out := buf.String()
	assert.Contains(t, out, "analysis finished")
	assert.Contains(t, out, "component=assist")
	assert.Contains(t, out, "suggestions=3")
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.Info("nothing")
		logger.With("a", 1).Error("still nothing")
	})
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(slog.NewTextHandler(&buf, nil))

	logger.WithError(os.ErrNotExist).Error("load failed")

	assert.Contains(t, buf.String(), "error_type=")
	assert.Contains(t, buf.String(), "file does not exist")
	assert.Same(t, logger, logger.WithError(nil))
}

func TestInitToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "codeboost.log")

	require.NoError(t, Init(Config{Level: slog.LevelInfo, Format: "json", Output: path, AddSource: true}))
	t.Cleanup(func() {
		_ = Close()
		NewNoopLogger()
	})

	Info("hello", "file", "main.py")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"file":"main.py"`)
	assert.Contains(t, string(data), "loggy_test.go")
}

func TestRequestIDContext(t *testing.T) {
	NewNoopLogger()

	ctx := WithRequestID(context.Background())
	id := GetRequestID(ctx)

	assert.NotEmpty(t, id)
	assert.NotNil(t, FromContext(ctx))
	assert.Equal(t, id, GetRequestID(WithRequestID(ctx)), "existing request id is kept")
	assert.Empty(t, GetRequestID(context.Background()))
}
