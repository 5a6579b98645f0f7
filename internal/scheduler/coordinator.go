package scheduler

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"

	"github.com/thoreinstein/keepsafe/internal/backup"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/logging"
)

// DefaultDebounce is the quiet period after a settings change before jobs
// are reloaded.
const DefaultDebounce = 500 * time.Millisecond

// Engine creates backups. [*backup.Engine] satisfies it.
type Engine interface {
	CreateBackup(items []string, destination string, compress bool, p backup.Progress) (*backup.Result, error)
	Fs() afero.Fs
}

// JobSource supplies the configured jobs and reports when they change.
// [*store.Store] satisfies it.
type JobSource interface {
	ListJobs() ([]backup.Job, error)
	OnChange(fn func()) (stop func(), err error)
}

// EventLogger records the outcome of scheduled runs.
// [*logging.EventLog] satisfies it.
type EventLogger interface {
	LogEvent(message string, severity logging.Severity)
}

// binding ties a configured job to its cron entry.
type binding struct {
	job   backup.Job
	entry cron.EntryID
	sched *intervalSchedule

	// run is the wrapped cron job. It is reused when the entry is
	// rescheduled so overlap protection survives interval changes.
	run cron.Job
}

// Coordinator keeps one timer per configured job and runs each job's
// backup when its timer fires.
type Coordinator struct {
	engine   Engine
	source   JobSource
	events   EventLogger
	logger   *slog.Logger
	clock    clock.Clock
	unit     time.Duration
	debounce time.Duration

	cron      *cron.Cron
	debouncer *Debouncer

	mu       sync.RWMutex
	bindings map[string]*binding

	stopOnce  sync.Once
	stopWatch func()
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the clock used for debouncing and artifact timestamps.
func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithIntervalUnit sets the length of one schedule unit. Jobs count their
// schedule in minutes, which is the default.
func WithIntervalUnit(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.unit = d
		}
	}
}

// WithDebounce sets the quiet period used by [Coordinator.ConfigChanged].
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// New creates a Coordinator. It does nothing until [Coordinator.Start] or
// [Coordinator.Reconcile] is called.
func New(engine Engine, source JobSource, events EventLogger, opts ...Option) *Coordinator {
	c := &Coordinator{
		engine:   engine,
		source:   source,
		events:   events,
		logger:   slog.Default(),
		clock:    clock.WallClock,
		unit:     time.Minute,
		debounce: DefaultDebounce,
		bindings: make(map[string]*binding),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.cron = cron.New(cron.WithLogger(cronLogger{logger: c.logger}))
	c.debouncer = NewDebouncer(c.clock, c.debounce, c.reload)
	return c
}

// Start loads the jobs, subscribes to job changes, and starts the timers.
// The coordinator stops when ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context) error {
	c.reload()

	stop, err := c.source.OnChange(c.ConfigChanged)
	if err != nil {
		return errors.Wrap(err, "watching job configuration")
	}
	c.mu.Lock()
	c.stopWatch = stop
	c.mu.Unlock()

	c.cron.Start()
	c.logger.Info("scheduler started", "jobs", len(c.Status()))

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return nil
}

// Stop cancels pending reloads, stops the timers, waits for running
// backups to finish, and drops every binding. It is safe to call more
// than once.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		c.debouncer.Stop()

		c.mu.Lock()
		stopWatch := c.stopWatch
		c.stopWatch = nil
		c.mu.Unlock()
		if stopWatch != nil {
			stopWatch()
		}

		<-c.cron.Stop().Done()

		c.mu.Lock()
		for key, b := range c.bindings {
			c.cron.Remove(b.entry)
			delete(c.bindings, key)
		}
		c.mu.Unlock()

		c.logger.Info("scheduler stopped")
	})
}

// ConfigChanged signals that the job configuration may have changed. A
// burst of signals results in a single reload once the debounce window
// passes quietly.
func (c *Coordinator) ConfigChanged() {
	c.debouncer.Trigger()
}

func (c *Coordinator) reload() {
	jobs, err := c.source.ListJobs()
	if err != nil {
		c.logger.Error("loading jobs", "error", err)
		c.events.LogEvent(fmt.Sprintf("Error loading backup jobs: %v", err), logging.SeverityError)
		return
	}
	c.Reconcile(jobs)
}

// Reconcile makes the active timers match jobs: new jobs get a timer,
// jobs whose schedule changed keep their elapsed time under the new
// interval, and jobs that are gone lose their timer. Reconcile is
// idempotent.
func (c *Coordinator) Reconcile(jobs []backup.Job) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var added, updated, removed int
	want := make(map[string]bool, len(jobs))

	for _, job := range jobs {
		want[job.Key] = true
		interval := time.Duration(job.Schedule) * c.unit

		b, ok := c.bindings[job.Key]
		if !ok {
			b = &binding{job: job, sched: newIntervalSchedule(interval)}
			b.run = c.wrap(job.Key)
			b.entry = c.cron.Schedule(b.sched, b.run)
			c.bindings[job.Key] = b
			added++
			c.logger.Debug("job scheduled", "key", job.Key, "name", job.Name, "interval", interval)
			continue
		}

		if b.sched.Interval() != interval {
			c.cron.Remove(b.entry)
			b.sched = resumeSchedule(b.sched, interval)
			b.entry = c.cron.Schedule(b.sched, b.run)
			c.logger.Debug("job rescheduled", "key", job.Key, "name", job.Name, "interval", interval)
		}
		if !jobEqual(b.job, job) {
			updated++
		}
		b.job = job
	}

	for key, b := range c.bindings {
		if want[key] {
			continue
		}
		c.cron.Remove(b.entry)
		delete(c.bindings, key)
		removed++
		c.logger.Debug("job unscheduled", "key", key, "name", b.job.Name)
	}

	c.logger.Info("jobs reconciled",
		"active", len(c.bindings), "added", added, "updated", updated, "removed", removed)
}

// wrap builds the cron job for key. The job looks up the binding when it
// fires, so it always runs the current version of the job.
func (c *Coordinator) wrap(key string) cron.Job {
	l := cronLogger{logger: c.logger}
	return cron.NewChain(cron.Recover(l), cron.SkipIfStillRunning(l)).Then(cron.FuncJob(func() {
		c.mu.RLock()
		b, ok := c.bindings[key]
		var job backup.Job
		if ok {
			job = b.job
		}
		c.mu.RUnlock()

		if !ok {
			c.logger.Debug("skipping unbound job", "key", key)
			return
		}
		_, _ = c.PerformBackup(job)
	}))
}

// PerformBackup runs one backup of job into
// <destination>/<name>-<yyyyMMdd-HHmmss>[.zip] and records the outcome as
// a system event. A failed run leaves nothing behind.
func (c *Coordinator) PerformBackup(job backup.Job) (*backup.Result, error) {
	base := backup.JobBackupName(job.Name, c.clock.Now())
	dest := backup.ArtifactPath(job.Destination, base, job.Type)

	c.logger.Info("running scheduled backup", "job", job.Name, "destination", dest)

	result, err := c.engine.CreateBackup(job.Sources, dest, job.Type.Compressed(), nil)
	if err != nil {
		if !errors.Is(err, backup.ErrExists) {
			if rmErr := backup.Remove(c.engine.Fs(), dest); rmErr != nil {
				c.logger.Warn("removing partial backup", "path", dest, "error", rmErr)
			}
		}
		c.events.LogEvent(fmt.Sprintf("Error performing backup %s: %v", job.Name, err), logging.SeverityError)
		return nil, err
	}

	c.events.LogEvent("Backup created: "+result.String(), logging.SeverityInfo)
	return result, nil
}

// JobStatus reports a bound job and its timer.
type JobStatus struct {
	Job      backup.Job
	Interval time.Duration
	Next     time.Time
	Prev     time.Time
}

// Status returns the bound jobs ordered by name.
func (c *Coordinator) Status() []JobStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]JobStatus, 0, len(c.bindings))
	for _, b := range c.bindings {
		e := c.cron.Entry(b.entry)
		out = append(out, JobStatus{
			Job:      b.job,
			Interval: b.sched.Interval(),
			Next:     e.Next,
			Prev:     e.Prev,
		})
	}
	slices.SortFunc(out, func(a, b JobStatus) int {
		return cmp.Or(strings.Compare(a.Job.Name, b.Job.Name), strings.Compare(a.Job.Key, b.Job.Key))
	})
	return out
}

func jobEqual(a, b backup.Job) bool {
	return a.Key == b.Key &&
		a.Name == b.Name &&
		slices.Equal(a.Sources, b.Sources) &&
		a.Destination == b.Destination &&
		a.Type == b.Type &&
		a.Schedule == b.Schedule
}
