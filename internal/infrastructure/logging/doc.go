// Package logging provides structured logging for the explorer.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the application.
//
// # Features
//
//   - Text output for interactive use (human-readable, to stderr)
//   - JSON output when scripted (machine-parsable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Optional bridging of the MQTT library's internal trace output
//
// Log output defaults to stderr so that it interleaves cleanly with the
// interactive prompt and message display on stdout.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("connecting", "endpoint", endpoint)
//	logger.Error("subscribe failed", "topic", topic, "error", err)
package logging
