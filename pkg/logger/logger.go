// Package logger owns the process-wide zap logger. Packages take child loggers through
// WithModule so every line carries the component that wrote it.
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// Options controls how the global logger is built.
type Options struct {
	// Level is a zap level name. Unknown names fall back to info.
	Level string
	// Format selects the encoder: "json" (default) or "console".
	Format string
	// Fields are attached to every entry, e.g. the service name.
	Fields map[string]string
}

// InitWithOptions builds a logger from opts and installs it globally.
func InitWithOptions(opts Options) error {
	cfg := zap.NewProductionConfig()
	if strings.EqualFold(strings.TrimSpace(opts.Format), "console") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(opts.Level))

	fields := make([]zap.Field, 0, len(opts.Fields))
	for k, v := range opts.Fields {
		fields = append(fields, zap.String(k, v))
	}

	built, err := cfg.Build(zap.Fields(fields...))
	if err != nil {
		return err
	}
	Replace(built)
	return nil
}

func parseLevel(name string) zapcore.Level {
	level, err := zapcore.ParseLevel(strings.TrimSpace(name))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// Replace swaps the global logger. A nil logger installs a no-op logger.
func Replace(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	global = l
	mu.Unlock()
}

// Logger returns the global logger.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync flushes buffered log entries.
func Sync() error {
	return Logger().Sync()
}

// WithModule returns a child of the global logger tagged with module.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}
