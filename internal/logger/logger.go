// Package logger holds the process-wide structured logger.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global logger. It discards everything until Initialize runs.
var Logger *zap.SugaredLogger

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize installs a console or JSON logger writing to stderr.
// Verbose lowers the level to debug.
func Initialize(verbose, jsonOutput bool) error {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		config.OutputPaths = []string{"stderr"}
		zapLogger, err := config.Build()
		if err != nil {
			return err
		}
		Logger = zapLogger.Sugar()
		return nil
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = ""
	encoderConfig.CallerKey = ""
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	Logger = zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)).Sugar()
	return nil
}

// Quiet restores the no-op logger.
func Quiet() {
	Logger = zap.NewNop().Sugar()
}

// Named returns a child of the global logger carrying the given fields.
func Named(name string, keysAndValues ...any) *zap.SugaredLogger {
	return Logger.Named(name).With(keysAndValues...)
}
