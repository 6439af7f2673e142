// Package logger wraps a process-wide zap logger behind key/value helpers.
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu            sync.RWMutex
	defaultLogger *zap.SugaredLogger
)

// Initialize sets up the global logger with the given level and format
// ("json" or "console").
func Initialize(level, format string) error {
	var lvl zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn", "warning":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if strings.ToLower(format) != "json" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Set replaces the global logger. Tests use it with zaptest/observer.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l.Sugar()
}

// Get returns the global logger, building a development one on first use.
func Get() *zap.SugaredLogger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l != nil {
		return l
	}
	dev, _ := zap.NewDevelopment(zap.AddCallerSkip(1))
	Set(dev)
	return Get()
}

func Debug(msg string, kv ...any) { Get().Debugw(msg, kv...) }
func Info(msg string, kv ...any)  { Get().Infow(msg, kv...) }
func Warn(msg string, kv ...any)  { Get().Warnw(msg, kv...) }
func Error(msg string, kv ...any) { Get().Errorw(msg, kv...) }

// With returns a child logger carrying the given key/value pairs.
func With(kv ...any) *zap.SugaredLogger {
	return Get().With(kv...)
}

// Sync flushes buffered entries; call it before exit.
func Sync() {
	_ = Get().Sync()
}
