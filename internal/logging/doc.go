// Package logging provides structured logging for the otastub server.
//
// This package wraps a process-wide zap logger with convenience functions for
// the events the stub cares about: HTTP check-ins, WebSocket connection
// lifecycle, text messages in both directions and binary audio frame sizes.
//
// # Log Levels
//
//   - Debug: hex dumps of binary frames, ignored message types
//   - Info: connections, check-ins, messages, scripted sends
//   - Warn: malformed input, unknown scene names
//   - Error: transport failures, startup failures
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// An empty level falls back to OTASTUB_LOG_LEVEL; when that is unset too the
// logger is a no-op.
//
// # Testing
//
// SetLogger swaps in any *zap.Logger, typically one built on
// go.uber.org/zap/zaptest/observer so tests can assert on emitted records.
package logging
