package config

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbose indicates whether verbose logging is enabled
var Verbose bool

// Debug indicates whether debug logging is enabled
var Debug bool

var (
	logMu  sync.RWMutex
	logger = zap.NewNop().Sugar()
)

// InitLogging builds the process logger. Debug implies verbose.
func InitLogging(verbose, debug bool) error {
	level := zapcore.WarnLevel
	switch {
	case debug:
		level = zapcore.DebugLevel
	case verbose:
		level = zapcore.InfoLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	built, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	SetLogger(built.Sugar())
	Verbose = verbose || debug
	Debug = debug
	return nil
}

// SetLogger replaces the process logger
func SetLogger(l *zap.SugaredLogger) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = l
}

// Logger returns the process logger
func Logger() *zap.SugaredLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// SyncLogger flushes buffered log entries
func SyncLogger() {
	_ = Logger().Sync()
}

// VerboseLog logs high-level operation information when verbose mode is enabled
func VerboseLog(format string, args ...interface{}) {
	if Verbose {
		Logger().Infof(format, args...)
	}
}

// DebugLog logs detailed internal information when debug mode is enabled
func DebugLog(format string, args ...interface{}) {
	if Debug {
		Logger().Debugf(format, args...)
	}
}
