// Package logging wraps a zap sugared logger for the long-running commands.
// Every call takes a message followed by alternating keys and values.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a structured logger shared by the capture loop, the notifiers
// and the web server. A nil *Logger is not usable; use Nop instead.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a logger for LOG_MODE. "prod" logs JSON at info level, "quiet"
// logs JSON at warn level and anything else logs console output at debug
// level.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	case "quiet":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building %q logger: %w", mode, err)
	}
	return FromZap(z), nil
}

// FromZap wraps an existing zap logger. Tests use it with an observer core.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{sugar: z.Sugar()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return FromZap(zap.NewNop())
}

// Sync flushes buffered entries. The error is dropped because syncing a
// terminal stderr always fails on Linux.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// With returns a child logger that adds the given fields to every entry.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

// Component returns a child logger tagged with a "component" field, so that
// capture and web entries can be told apart in one stream.
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}
