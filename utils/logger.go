package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a console-encoded sugared zap logger at the given level.
// Unknown level strings fall back to info.
func NewLogger(level string) *zap.SugaredLogger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		// Build on a development config only fails on bad output paths;
		// a no-op logger keeps callers nil-safe regardless.
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}
