// Package logging builds the session logger. Logging is off unless a log
// file is configured, so the shell's own output is never interleaved with
// log lines.
package logging

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger appending to file at level. Every entry carries
// the session id. An empty file yields a no-op logger.
func New(file, level string) (*zap.Logger, string, error) {
	session := uuid.NewString()
	if file == "" {
		return zap.NewNop(), session, nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, "", fmt.Errorf("logging: %w", err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{file}
	config.ErrorOutputPaths = []string{file}
	config.InitialFields = map[string]any{"session": session}
	config.DisableStacktrace = lvl > zapcore.DebugLevel

	logger, err := config.Build()
	if err != nil {
		return nil, "", fmt.Errorf("logging: %w", err)
	}
	return logger, session, nil
}
