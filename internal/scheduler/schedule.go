package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// intervalSchedule fires every interval, measured from the start of the
// previous period. It implements cron.Schedule.
type intervalSchedule struct {
	mu       sync.Mutex
	interval time.Duration

	// start is the beginning of the current period.
	start time.Time

	// resume makes the next Next call continue the period that began at
	// start instead of opening a new one.
	resume bool
}

func newIntervalSchedule(interval time.Duration) *intervalSchedule {
	return &intervalSchedule{interval: interval}
}

// resumeSchedule returns a schedule with a new interval that keeps the time
// already elapsed in prev's current period.
func resumeSchedule(prev *intervalSchedule, interval time.Duration) *intervalSchedule {
	prev.mu.Lock()
	defer prev.mu.Unlock()
	return &intervalSchedule{
		interval: interval,
		start:    prev.start,
		resume:   !prev.start.IsZero(),
	}
}

// Next is called by cron when the entry is scheduled and after each run.
func (s *intervalSchedule) Next(t time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resume {
		s.resume = false
		next := s.start.Add(s.interval)
		if next.Before(t) {
			next = t
		}
		return next
	}

	s.start = t
	return t.Add(s.interval)
}

func (s *intervalSchedule) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// cronLogger routes cron's diagnostics to slog. Cron's informational
// messages fire on every wake-up, so they are logged at debug.
type cronLogger struct {
	logger *slog.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
