package core

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init initializes zap's global logger
// After calling this, we use zap.L() directly.
func Init(pretty bool) error {
	return initGlobal(loggerConfig(pretty))
}

// InitStdio initializes zap's global logger for stdio transport mode.
// All output goes to stderr so stdout stays reserved for the JSON-RPC
// stream.
func InitStdio(pretty bool) error {
	config := loggerConfig(pretty)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	return initGlobal(config)
}

func loggerConfig(pretty bool) zap.Config {
	var config zap.Config

	if pretty {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	return config
}

func initGlobal(config zap.Config) error {
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	zap.ReplaceGlobals(logger)
	return nil
}

// LogDispatch logs one settled tool dispatch using zap's global logger
func LogDispatch(operation string, duration float64, err error) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.Float64("duration_seconds", duration),
		zap.Bool("success", err == nil),
	}

	if err != nil {
		fields = append(fields, zap.Error(err))
		zap.L().Error("Dispatch failed", fields...)
		return
	}

	zap.L().Info("Dispatch completed successfully", fields...)
}

// LogBackendCall logs a generation backend round trip using zap's global logger
func LogBackendCall(provider string, model string, duration float64, err error) {
	fields := []zap.Field{
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Float64("duration_seconds", duration),
	}

	if err != nil {
		fields = append(fields, zap.Error(err))
		zap.L().Error("Backend call failed", fields...)
		return
	}

	zap.L().Info("Backend call completed successfully", fields...)
}

// LogPanicRecovery logs a recovered panic with its stack trace
func LogPanicRecovery(component string, panicValue any) {
	zap.L().Error("Panic recovered",
		zap.String("component", component),
		zap.Any("panic_value", panicValue),
		zap.String("stack", string(debug.Stack())))
}

// LogDeferredError runs fn and logs its error, if any. Intended for defer
// statements whose errors would otherwise be discarded, e.g.
// defer core.LogDeferredError(resp.Body.Close)
func LogDeferredError(fn func() error) {
	if err := fn(); err != nil {
		zap.L().Error("Deferred error",
			zap.Error(err),
			zap.String("stack", string(debug.Stack())))
	}
}
