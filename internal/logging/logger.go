// Package logging builds the process logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select the encoder and verbosity of the process logger.
type Options struct {
	// Console selects the colored console encoder for interactive use;
	// otherwise output is production JSON with stacktraces on error.
	Console bool
	// Level overrides the encoder's default level when non-empty,
	// e.g. "debug" or "warn".
	Level string
}

// New builds the process logger. Components derive plugin-tagged children
// from it via With; the returned logger is the root of that tree.
func New(o Options) (*zap.Logger, error) {
	var cfg zap.Config
	if o.Console {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.DisableStacktrace = false
	}
	cfg.EncoderConfig.TimeKey = "ts"
	if o.Level != "" {
		lvl, err := zapcore.ParseLevel(o.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", o.Level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named("magpie"), nil
}

// MustNew is New for main paths where a logger failure is unrecoverable.
func MustNew(o Options) *zap.Logger {
	logger, err := New(o)
	if err != nil {
		panic(err)
	}
	return logger
}
