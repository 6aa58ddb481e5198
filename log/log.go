// Package log holds the process-wide zap logger.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger = zap.NewNop()

// InitProductionLogger configures JSON output at the given level.
func InitProductionLogger(level string) error {
	cfg := zap.NewProductionConfig()
	return initFrom(cfg, level)
}

// InitDevelopmentLogger configures human-readable console output at the
// given level.
func InitDevelopmentLogger(level string) error {
	cfg := zap.NewDevelopmentConfig()
	return initFrom(cfg, level)
}

func initFrom(cfg zap.Config, level string) error {
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return err
		}
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	Logger = logger
	return nil
}

// Named returns a child of the global logger with the given name.
func Named(name string) *zap.Logger {
	return Logger.Named(name)
}

// Sync flushes buffered log entries. Call on process exit.
func Sync() {
	_ = Logger.Sync()
}
