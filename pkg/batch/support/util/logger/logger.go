// Package logger provides the leveled logging utility used across the datalake batch job.
// It keeps a small package-level API (Debugf, Infof, ...) backed by a zap SugaredLogger,
// so call sites stay terse while output stays structured.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel is a type representing the logging level.
type LogLevel int

const (
	// LevelDebug is the log level used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is the log level used for general informational messages.
	LevelInfo
	// LevelWarn is the log level used for potential issues or warning messages.
	LevelWarn
	// LevelError is the log level used for error messages.
	LevelError
	// LevelFatal is the log level used for fatal error messages that cause application termination.
	LevelFatal
)

var (
	mu       sync.RWMutex
	logLevel = LevelInfo
	atom     = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar    = newSugar(atom)
)

func newSugar(level zap.AtomicLevel) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level)
	// AddCallerSkip(1) so the caller reported is the one calling Infof, not this package.
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// SetLogLevel sets the global log level.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR", "FATAL" (case-insensitive).
// Unknown values fall back to INFO and print a notice.
func SetLogLevel(level string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToUpper(level) {
	case "DEBUG", "TRACE":
		logLevel = LevelDebug
		atom.SetLevel(zapcore.DebugLevel)
	case "INFO":
		logLevel = LevelInfo
		atom.SetLevel(zapcore.InfoLevel)
	case "WARN":
		logLevel = LevelWarn
		atom.SetLevel(zapcore.WarnLevel)
	case "ERROR":
		logLevel = LevelError
		atom.SetLevel(zapcore.ErrorLevel)
	case "FATAL":
		logLevel = LevelFatal
		atom.SetLevel(zapcore.FatalLevel)
	default:
		fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
		logLevel = LevelInfo
		atom.SetLevel(zapcore.InfoLevel)
	}
}

// CurrentLevel returns the active log level.
func CurrentLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel
}

// SetLogger replaces the underlying zap logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	sugar = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	current().Debugf(format, v...)
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	current().Infof(format, v...)
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	current().Warnf(format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	current().Errorf(format, v...)
}

// Fatalf formats and outputs a FATAL level log message, then terminates the program.
func Fatalf(format string, v ...interface{}) {
	current().Fatalf(format, v...)
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = current().Sync()
}
