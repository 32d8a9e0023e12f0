// Package logging provides structured logging for agentboard.
//
// This package wraps Go's log/slog to write JSON-formatted logs with
// persistent context attributes. Logs never go to the terminal while the
// interactive view is running: they land in a debug.log file under the
// configured log directory, or on stderr for the headless commands.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/logs", "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	chLogger := logger.WithSession("session_1700000000000").WithComponent("channel")
//	chLogger.Info("connected", "attempt", 2)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"connected","session_id":"session_1700000000000","component":"channel","attempt":2}
//
// # Runtime Level Changes
//
// All child loggers share one level variable, so [Logger.SetLevel] on any of
// them takes effect everywhere. The config watcher uses this to apply
// logging.level edits without a restart.
//
// # Rotation
//
// When MaxSizeMB is non-zero the log file is rotated by [RotatingWriter]:
// debug.log.1 is the most recent backup, and with Compress set backups are
// gzipped to debug.log.1.gz.
//
// # Testing
//
// Use [NopLogger] to discard output.
package logging
