// Package log provides the node's module-scoped logging facility.
//
// Every subsystem obtains its own logger with NewModuleLogger and logs
// structured key-value pairs, mirroring the calling convention used
// throughout the teacher node (logger.Info("msg", "k1", v1, "k2", v2)).
package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base *zap.Logger

func init() {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Fallback that can never itself fail, so logging init is never fatal.
		l = zap.NewNop()
	}
	base = l
}

// SetLevel adjusts the global minimum logged level ("debug", "info", "warn", "error").
func SetLevel(level string) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if l, err := cfg.Build(zap.AddCallerSkip(1)); err == nil {
		base = l
	}
}

// Logger is a module-scoped structured logger.
type Logger struct {
	module string
	sugar  *zap.SugaredLogger
}

// NewModuleLogger returns a Logger tagged with module, the way the teacher's
// log.NewModuleLogger(log.StorageDatabase) call sites tag every subsystem.
func NewModuleLogger(module string) *Logger {
	return &Logger{module: module, sugar: base.Sugar().With("module", module)}
}

func (l *Logger) Trace(msg string, ctx ...interface{}) { l.sugar.Debugw(msg, ctx...) }
func (l *Logger) Debug(msg string, ctx ...interface{}) { l.sugar.Debugw(msg, ctx...) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.sugar.Infow(msg, ctx...) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.sugar.Warnw(msg, ctx...) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.sugar.Errorw(msg, ctx...) }

// Crit logs at error level and terminates the process. It must only be used
// for the Fatal error kind (consensus key missing, unrecoverable storage,
// state-transition version mismatch) — never for per-tx or per-peer errors.
func (l *Logger) Crit(msg string, ctx ...interface{}) {
	l.sugar.Errorw(msg, ctx...)
	_ = l.sugar.Sync()
	fmt.Fprintf(os.Stderr, "fatal: %s\n", msg)
	os.Exit(1)
}
