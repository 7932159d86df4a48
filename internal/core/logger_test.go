package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// TestInit_PrettyLog tests logger initialization with pretty logging
func TestInit_PrettyLog(t *testing.T) {
	err := Init(true)
	require.NoError(t, err)

	logger := zap.L()
	assert.NotNil(t, logger)

	logger.Info("Test message")
}

// TestInit_JSONLog tests logger initialization with JSON logging
func TestInit_JSONLog(t *testing.T) {
	err := Init(false)
	require.NoError(t, err)

	logger := zap.L()
	assert.NotNil(t, logger)

	logger.Info("Test message")
}

// TestInitStdio tests that stdio mode keeps stdout clean
func TestInitStdio(t *testing.T) {
	err := InitStdio(false)
	require.NoError(t, err)

	// Logging must not panic; the output paths are stderr only.
	zap.L().Info("Test message")
}

// TestLogDispatch_Success tests logging a successful dispatch
func TestLogDispatch_Success(t *testing.T) {
	observedCore, logs := observer.New(zap.InfoLevel)
	zap.ReplaceGlobals(zap.New(observedCore))

	LogDispatch("generate_image", 1.5, nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Dispatch completed successfully", entry.Message)
	assert.Equal(t, zap.InfoLevel, entry.Level)

	assert.Equal(t, "generate_image", entry.ContextMap()["operation"])
	assert.Equal(t, 1.5, entry.ContextMap()["duration_seconds"])
	assert.Equal(t, true, entry.ContextMap()["success"])
}

// TestLogDispatch_Error tests logging a failed dispatch
func TestLogDispatch_Error(t *testing.T) {
	observedCore, logs := observer.New(zap.ErrorLevel)
	zap.ReplaceGlobals(zap.New(observedCore))

	LogDispatch("generate_image", 2.0, errors.New("dispatch failed"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Dispatch failed", entry.Message)
	assert.Equal(t, zap.ErrorLevel, entry.Level)

	assert.Equal(t, "generate_image", entry.ContextMap()["operation"])
	assert.Equal(t, 2.0, entry.ContextMap()["duration_seconds"])
	assert.Equal(t, false, entry.ContextMap()["success"])
	assert.NotNil(t, entry.ContextMap()["error"])
}

// TestLogBackendCall_Success tests logging a successful backend round trip
func TestLogBackendCall_Success(t *testing.T) {
	observedCore, logs := observer.New(zap.InfoLevel)
	zap.ReplaceGlobals(zap.New(observedCore))

	LogBackendCall("gemini", "imagen-4.0-generate-001", 0.8, nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Backend call completed successfully", entry.Message)
	assert.Equal(t, "gemini", entry.ContextMap()["provider"])
	assert.Equal(t, "imagen-4.0-generate-001", entry.ContextMap()["model"])
}

// TestLogBackendCall_Error tests logging a failed backend round trip
func TestLogBackendCall_Error(t *testing.T) {
	observedCore, logs := observer.New(zap.ErrorLevel)
	zap.ReplaceGlobals(zap.New(observedCore))

	LogBackendCall("gemini", "veo-3.0-generate-001", 3.2, errors.New("upstream 500"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Backend call failed", entry.Message)
	assert.Equal(t, zap.ErrorLevel, entry.Level)
	assert.NotNil(t, entry.ContextMap()["error"])
}

// TestLogPanicRecovery tests logging a recovered panic
func TestLogPanicRecovery(t *testing.T) {
	observedCore, logs := observer.New(zap.ErrorLevel)
	zap.ReplaceGlobals(zap.New(observedCore))

	panicValue := "test panic"
	LogPanicRecovery("tool handler", panicValue)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Panic recovered", entry.Message)
	assert.Equal(t, zap.ErrorLevel, entry.Level)

	assert.Equal(t, "tool handler", entry.ContextMap()["component"])
	assert.Equal(t, panicValue, entry.ContextMap()["panic_value"])
	assert.NotEmpty(t, entry.ContextMap()["stack"])
}

// TestLogDeferredError_WithError tests LogDeferredError when the function returns an error
func TestLogDeferredError_WithError(t *testing.T) {
	observedCore, logs := observer.New(zap.ErrorLevel)
	zap.ReplaceGlobals(zap.New(observedCore))

	testErr := errors.New("deferred error")
	LogDeferredError(func() error {
		return testErr
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Deferred error", entry.Message)
	assert.Equal(t, zap.ErrorLevel, entry.Level)
	assert.NotNil(t, entry.ContextMap()["error"])
}

// TestLogDeferredError_NoError tests LogDeferredError when the function succeeds
func TestLogDeferredError_NoError(t *testing.T) {
	observedCore, logs := observer.New(zap.ErrorLevel)
	zap.ReplaceGlobals(zap.New(observedCore))

	LogDeferredError(func() error {
		return nil
	})

	assert.Equal(t, 0, logs.Len())
}
