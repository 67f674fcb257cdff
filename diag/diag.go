// Package diag provides the session logger. Playback owns the terminal, so
// nothing may log to stdout or stderr while a video is on screen; debug
// output goes to a file instead, and is a no-op unless asked for.
package diag

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const debugLogFile = "debug.log"

// NewLogger returns the session logger and a flush function to defer. With
// debug disabled both are cheap no-ops.
func NewLogger(debug bool) (*zap.SugaredLogger, func(), error) {
	if !debug {
		return zap.NewNop().Sugar(), func() {}, nil
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{debugLogFile}
	cfg.ErrorOutputPaths = []string{debugLogFile}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)

	logger, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", debugLogFile, err)
	}
	return logger.Sugar(), func() { _ = logger.Sync() }, nil
}
