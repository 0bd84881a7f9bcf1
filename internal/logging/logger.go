package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is swapped atomically so tests can replace it while sessions from a
// previous test are still winding down.
var logger atomic.Pointer[zap.Logger]

// LogLevelEnvVar is the environment variable consulted when no level is passed
// to Initialize. When both are empty, logging is silent.
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "OTASTUB_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks OTASTUB_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger.Store(zap.NewNop())
		return nil
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		return err
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Store(built)

	return nil
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (expected debug, info, warn or error)", level)
	}
}

// SetLogger replaces the global logger. Tests use it to install an observer core.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	nop := zap.NewNop()
	logger.CompareAndSwap(nil, nop)
	return logger.Load()
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogConnection logs a connection event
func LogConnection(remoteAddr string, event string) {
	Info("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogHTTPRequest logs an HTTP request
func LogHTTPRequest(remoteAddr string, method string, path string) {
	Info("HTTP request received",
		zap.String("remote_addr", remoteAddr),
		zap.String("method", method),
		zap.String("path", path),
	)
}

// LogWebSocketMessage logs a text WebSocket message in either direction.
func LogWebSocketMessage(remoteAddr string, direction string, data []byte) {
	Info("WebSocket message",
		zap.String("remote_addr", remoteAddr),
		zap.String("direction", direction),
		zap.Int("length", len(data)),
		zap.String("content", string(data)),
	)
}

// LogBinaryFrame records the size of an inbound audio frame. The payload is
// only hex dumped at debug level.
func LogBinaryFrame(remoteAddr string, data []byte) {
	fields := []zap.Field{
		zap.String("remote_addr", remoteAddr),
		zap.Int("length", len(data)),
	}
	if GetLogger().Core().Enabled(zapcore.DebugLevel) {
		fields = append(fields, zap.String("hex_dump", hexDump(data)))
	}
	Info("Binary frame received", fields...)
}

func hexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	// Limit to first 256 bytes for logging
	if len(data) > 256 {
		return hex.EncodeToString(data[:256]) + "..."
	}
	return hex.EncodeToString(data)
}

// Sync flushes any buffered log entries
func Sync() {
	if l := logger.Load(); l != nil {
		_ = l.Sync()
	}
}
