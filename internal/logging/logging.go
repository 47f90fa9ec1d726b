// Package logging builds the zap loggers used across the workflow.
// Each subsystem logs under a named category so a host embedding the
// library can filter by concern. The library defaults to a nop logger:
// an embedder that wants output opts in through config or injects its
// own *zap.Logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names used across the module.
const (
	CategorySession  = "session"
	CategoryRisk     = "risk"
	CategoryInspect  = "inspect"
	CategoryGate     = "gate"
	CategoryAutofill = "autofill"
	CategoryObserve  = "observe"
	CategoryAudit    = "audit"
	CategoryStore    = "store"
)

// Config controls logger construction.
type Config struct {
	// DebugMode enables human-readable console output at debug level.
	// Off, the logger is a nop and the library is silent.
	DebugMode bool `yaml:"debug_mode"`

	// Level overrides the minimum level when DebugMode is on
	// (debug, info, warn, error).
	Level string `yaml:"level"`
}

// New builds the root logger for the workflow.
func New(cfg Config) (*zap.Logger, error) {
	if !cfg.DebugMode {
		return zap.NewNop(), nil
	}
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// Named returns the category child of a logger, tolerating nil.
func Named(logger *zap.Logger, category string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named(category)
}
