// Package logging provides structured logging for the keepsafe CLI and
// scheduler daemon using slog.
//
// Console output uses a compact, optionally colorized text [Handler] or
// JSON. A second, JSON-only sink can be attached for a log file; the
// daemon uses [NewRotatingFile] for that.
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{
//		Level:  logging.LevelFromVerbosity(verbose),
//		Format: logging.FormatText,
//		Output: os.Stderr,
//	})
//	logger.Info("backup created", "name", result.Name)
//
// # System Events
//
// Scheduled backup outcomes are reported through [EventLog], which maps a
// [Severity] onto a slog level:
//
//	events := logging.NewEventLog(logger)
//	events.LogEvent("Backup created: "+result.String(), logging.SeverityInfo)
//
// # Testing
//
// For tests, use [ForTest] to capture log output via the testing framework.
package logging
