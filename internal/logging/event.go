package logging

import (
	"context"
	"log/slog"
)

// Severity classifies a system event.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "info"
}

// Level maps s onto a slog level.
func (s Severity) Level() slog.Level {
	if s == SeverityError {
		return slog.LevelError
	}
	return slog.LevelInfo
}

// EventLog records system events, such as scheduled backup outcomes, on a
// logger. Events are tagged with event=true so they can be filtered out of
// a JSON log file.
type EventLog struct {
	logger *slog.Logger
}

// NewEventLog returns an EventLog writing to logger, or to [slog.Default]
// when logger is nil.
func NewEventLog(logger *slog.Logger) *EventLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLog{logger: logger}
}

// LogEvent records message at the level matching severity.
func (e *EventLog) LogEvent(message string, severity Severity) {
	e.logger.Log(context.Background(), severity.Level(), message, "event", true)
}
