// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the structured key-value logger used throughout
// the data plane, backed by charmbracelet/log.
package logging

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Config controls logger construction.
type Config struct {
	Level      string // "debug", "info", "warn", "error"
	Output     io.Writer
	ReportTime bool
	Prefix     string
}

// DefaultConfig returns the default logger configuration: info level, stderr.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Output:     os.Stderr,
		ReportTime: true,
	}
}

// Logger wraps charmbracelet/log with the Info/Warn/Error/Debug(msg, kv...)
// call convention used across this codebase.
type Logger struct {
	l *charmlog.Logger
}

// New creates a Logger from the given configuration.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	l := charmlog.NewWithOptions(cfg.Output, charmlog.Options{
		ReportTimestamp: cfg.ReportTime,
		Prefix:          cfg.Prefix,
	})
	l.SetLevel(parseLevel(cfg.Level))

	return &Logger{l: l}
}

func parseLevel(level string) charmlog.Level {
	switch level {
	case "debug":
		return charmlog.DebugLevel
	case "warn":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// With returns a child logger carrying the given key-value pairs on every
// subsequent call.
func (lg *Logger) With(kv ...any) *Logger {
	return &Logger{l: lg.l.With(kv...)}
}

// Debug logs at debug level.
func (lg *Logger) Debug(msg string, kv ...any) { lg.l.Debug(msg, kv...) }

// Info logs at info level.
func (lg *Logger) Info(msg string, kv ...any) { lg.l.Info(msg, kv...) }

// Warn logs at warn level.
func (lg *Logger) Warn(msg string, kv ...any) { lg.l.Warn(msg, kv...) }

// Error logs at error level.
func (lg *Logger) Error(msg string, kv ...any) { lg.l.Error(msg, kv...) }

// SetLevel adjusts the logger's minimum level at runtime.
func (lg *Logger) SetLevel(level string) {
	lg.l.SetLevel(parseLevel(level))
}
