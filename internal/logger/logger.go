// Package logger builds the zap loggers used across logsift. Library code
// takes a *zap.Logger and never writes to a global; the CLI constructs one
// here and threads it through.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Option configures logger construction.
type Option func(*zap.Config)

// WithLevel sets the minimum level from a string (debug, info, warn, error).
func WithLevel(levelStr string) Option {
	return func(cfg *zap.Config) {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(levelStr)); err != nil {
			lvl = zapcore.InfoLevel
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
}

// WithDevelopment switches to the human-readable console encoder.
func WithDevelopment(dev bool) Option {
	return func(cfg *zap.Config) {
		if dev {
			*cfg = zap.NewDevelopmentConfig()
		}
	}
}

// New builds a production JSON logger writing to stderr.
func New(options ...Option) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	for _, opt := range options {
		opt(&cfg)
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return log, nil
}
