// Package logging provides structured logging for the dalloc project,
// plus a fixed per-process log line format for capacity and stop
// accounting.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Logger wraps hclog.Logger with the same Debug/Info/Warn/Error(msg,
// kv...) call shape the project has always used, now backed by a real
// structured-logging engine instead of a stdlib log.Logger wrapper.
type Logger struct {
	hlog hclog.Logger
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// LogLevel mirrors hclog's level constants under the project's own name,
// so callers don't need to import hclog directly.
type LogLevel = hclog.Level

const (
	LevelDebug = hclog.Debug
	LevelInfo  = hclog.Info
	LevelWarn  = hclog.Warn
	LevelError = hclog.Error
)

// Config holds logging configuration. Output may be any io.Writer,
// including the io.MultiWriter that NewMultiLogger builds.
type Config struct {
	Name   string
	Level  LogLevel
	Output io.Writer
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:   "dalloc",
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// NewLogger creates a new logger.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	return &Logger{hlog: hclog.New(&hclog.LoggerOptions{
		Name:   config.Name,
		Level:  config.Level,
		Output: output,
	})}
}

// NewMultiLogger fans log output out to every writer in outputs at once,
// expressed through hclog's own Output option. (The --verbose stderr copy
// of the per-process log lines is written by ProcessLog, not by this.)
func NewMultiLogger(name string, level LogLevel, outputs ...io.Writer) *Logger {
	return NewLogger(&Config{Name: name, Level: level, Output: io.MultiWriter(outputs...)})
}

// Default returns the default logger, creating it if necessary.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

// Named returns a child logger carrying name as a sub-scope, e.g. a
// per-rank logger derived from the process default.
func (l *Logger) Named(name string) *Logger {
	return &Logger{hlog: l.hlog.Named(name)}
}

func (l *Logger) Debug(msg string, kv ...any) { l.hlog.Debug(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)   { l.hlog.Info(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)   { l.hlog.Warn(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any)  { l.hlog.Error(msg, kv...) }

// Global convenience functions.
func Debug(msg string, kv ...any) { Default().Debug(msg, kv...) }
func Info(msg string, kv ...any)  { Default().Info(msg, kv...) }
func Warn(msg string, kv ...any)  { Default().Warn(msg, kv...) }
func Error(msg string, kv ...any) { Default().Error(msg, kv...) }
