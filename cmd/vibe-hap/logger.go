package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the console logger written to stderr. debug wins over
// quiet.
func newLogger(debug, quiet bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	switch {
	case debug:
		level = zapcore.DebugLevel
	case quiet:
		level = zapcore.WarnLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Sampling = nil
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named("vibe-hap"), nil
}
