package doctor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/thoreinstein/keepsafe/internal/backup"
	"github.com/thoreinstein/keepsafe/internal/config"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/store"
)

// ConfigCheck reports whether the configuration file loaded and validated.
type ConfigCheck struct {
	cfg     *config.Config
	file    string
	loadErr error
}

// NewConfigCheck creates a ConfigCheck. file is the config file that was
// read, or "" when defaults were used; loadErr is the error from loading it.
func NewConfigCheck(cfg *config.Config, file string, loadErr error) *ConfigCheck {
	return &ConfigCheck{cfg: cfg, file: file, loadErr: loadErr}
}

// Name returns the check identifier.
func (c *ConfigCheck) Name() string { return "config" }

// Category returns the check category.
func (c *ConfigCheck) Category() string { return "config" }

// Run executes the check.
func (c *ConfigCheck) Run() *CheckResult {
	if c.loadErr != nil {
		return &CheckResult{
			Status:   SeverityError,
			Message:  "configuration could not be loaded",
			Problems: []string{c.loadErr.Error()},
			FixHint:  "Fix the config file, or remove it to use the defaults",
		}
	}

	if errs := config.Validate(c.cfg); len(errs) > 0 {
		problems := make([]string, len(errs))
		for i, err := range errs {
			problems[i] = err.Error()
		}
		return &CheckResult{
			Status:   SeverityError,
			Message:  "configuration is invalid",
			Problems: problems,
		}
	}

	if c.file == "" {
		return &CheckResult{Status: SeverityInfo, Message: "no config file; using defaults"}
	}
	return &CheckResult{Status: SeverityPass, Message: "loaded " + c.file}
}

// SettingsCheck reports whether the settings file parses and which of its
// jobs the scheduler would skip.
type SettingsCheck struct {
	fs    afero.Fs
	store *store.Store
}

// NewSettingsCheck creates a SettingsCheck for s.
func NewSettingsCheck(fsys afero.Fs, s *store.Store) *SettingsCheck {
	return &SettingsCheck{fs: fsys, store: s}
}

// Name returns the check identifier.
func (c *SettingsCheck) Name() string { return "settings-file" }

// Category returns the check category.
func (c *SettingsCheck) Category() string { return "settings" }

// Run executes the check.
func (c *SettingsCheck) Run() *CheckResult {
	path := c.store.Path()
	if _, err := c.fs.Stat(path); errors.Is(err, os.ErrNotExist) {
		return &CheckResult{Status: SeverityInfo, Message: path + " does not exist yet"}
	}

	problems, err := c.store.Problems()
	if err != nil {
		return &CheckResult{
			Status:   SeverityError,
			Message:  "settings file cannot be read",
			Problems: []string{err.Error()},
			FixHint:  "Repair it with: keepsafe settings edit",
		}
	}

	if len(problems) > 0 {
		lines := make([]string, len(problems))
		for i, p := range problems {
			lines[i] = p.Error()
		}
		return &CheckResult{
			Status:   SeverityWarning,
			Message:  fmt.Sprintf("%d job(s) are malformed and will not run", len(problems)),
			Problems: lines,
			FixHint:  "Remove them with: keepsafe job remove <key>",
		}
	}
	return &CheckResult{Status: SeverityPass, Message: path + " is valid"}
}

// JobPathsCheck reports job sources that are missing and job destinations
// that cannot be written.
type JobPathsCheck struct {
	fs   afero.Fs
	jobs []backup.Job
}

// NewJobPathsCheck creates a JobPathsCheck for jobs.
func NewJobPathsCheck(fsys afero.Fs, jobs []backup.Job) *JobPathsCheck {
	return &JobPathsCheck{fs: fsys, jobs: jobs}
}

// Name returns the check identifier.
func (c *JobPathsCheck) Name() string { return "job-paths" }

// Category returns the check category.
func (c *JobPathsCheck) Category() string { return "jobs" }

// Run executes the check.
func (c *JobPathsCheck) Run() *CheckResult {
	if len(c.jobs) == 0 {
		return &CheckResult{Status: SeverityInfo, Message: "no jobs configured"}
	}

	status := SeverityPass
	var problems []string
	for _, job := range c.jobs {
		for _, src := range job.Sources {
			if _, err := c.fs.Stat(src); err != nil {
				status = max(status, SeverityWarning)
				problems = append(problems, fmt.Sprintf("%s: source %s is missing and will be skipped", job.Name, src))
			}
		}
		if sev, msg := writableDir(c.fs, job.Destination); sev != SeverityPass {
			status = max(status, sev)
			problems = append(problems, fmt.Sprintf("%s: %s", job.Name, msg))
		}
	}

	if status == SeverityPass {
		return &CheckResult{Status: status, Message: fmt.Sprintf("%d job(s) have usable sources and destinations", len(c.jobs))}
	}
	return &CheckResult{
		Status:   status,
		Message:  "some jobs have path problems",
		Problems: problems,
	}
}

// DirCheck reports whether a directory keepsafe writes into is usable.
type DirCheck struct {
	fs       afero.Fs
	name     string
	category string
	dir      string
	hint     string
}

// NewBackupPathCheck checks the directory that receives ad hoc backups.
func NewBackupPathCheck(fsys afero.Fs, dir string) *DirCheck {
	return &DirCheck{
		fs:       fsys,
		name:     "backup-path",
		category: "paths",
		dir:      dir,
		hint:     "Change it with: keepsafe settings set default_backup_path <dir>",
	}
}

// NewLogDirCheck checks the directory of the scheduler's log file. An empty
// logFile means file logging is off.
func NewLogDirCheck(fsys afero.Fs, logFile string) *DirCheck {
	dir := ""
	if logFile != "" {
		dir = filepath.Dir(logFile)
	}
	return &DirCheck{
		fs:       fsys,
		name:     "log-dir",
		category: "paths",
		dir:      dir,
		hint:     "Set log.file in the config file to a writable location",
	}
}

// Name returns the check identifier.
func (c *DirCheck) Name() string { return c.name }

// Category returns the check category.
func (c *DirCheck) Category() string { return c.category }

// Run executes the check.
func (c *DirCheck) Run() *CheckResult {
	if c.dir == "" {
		return &CheckResult{Status: SeverityInfo, Message: "not configured"}
	}

	sev, msg := writableDir(c.fs, c.dir)
	if sev == SeverityPass {
		return &CheckResult{Status: sev, Message: c.dir + " is writable"}
	}
	return &CheckResult{Status: sev, Message: msg, FixHint: c.hint}
}

// writableDir reports whether a file can be created in dir. A missing dir is
// only a warning since backups create their destination.
func writableDir(fsys afero.Fs, dir string) (Severity, string) {
	info, err := fsys.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return SeverityWarning, dir + " does not exist and will be created"
	case err != nil:
		return SeverityError, fmt.Sprintf("%s cannot be read: %v", dir, err)
	case !info.IsDir():
		return SeverityError, dir + " is not a directory"
	}

	f, err := afero.TempFile(fsys, dir, ".keepsafe-doctor-*")
	if err != nil {
		return SeverityError, fmt.Sprintf("%s is not writable: %v", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = fsys.Remove(name)
	return SeverityPass, ""
}
