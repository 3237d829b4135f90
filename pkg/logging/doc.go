// Package logging provides structured logging configuration for entityd.
//
// This package wraps log/slog to provide consistent logging across the
// server, the store and the CLI. It supports configurable log levels, text or
// JSON output and an optional log file.
//
// # Usage
//
// Create a logger with desired configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("server started", "port", 8080)
//	logger.Error("failed to load seed", "error", err)
//
// When a log file is configured, use Open instead. Records then go to both
// the primary output and the file (as JSON lines):
//
//	logger, closer, err := logging.Open(cfg)
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//
// # Integration
//
// Components should accept a *slog.Logger in their constructor or via an
// option. If no logger is provided, use logging.Nop() for a no-op logger.
package logging
