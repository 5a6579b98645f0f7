// Package store persists keepsafe's user settings and scheduled backup jobs
// in a single YAML settings file.
//
//	settings:
//	  last_backup_info: "date: 2026-01-23 03:00:00, name: nightly-20260123-030000, ..."
//	jobs:
//	  - key: job-1f0c4b7e-0d5e-4c49-9a59-e2a1b7c0d8f1
//	    name: nightly
//	    sources: [/home/me/docs, /etc/hosts]
//	    destination: /mnt/backups
//	    type: zip
//	    schedule: "60"
//
// Setting keys are case-insensitive. Writes replace the file atomically, so
// a reader never sees a partial document.
package store

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/thoreinstein/keepsafe/internal/backup"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/paths"
	"github.com/thoreinstein/keepsafe/pkg/fileutil"
)

// Well-known setting keys.
const (
	KeyLastBackupInfo    = "last_backup_info"
	KeyDefaultBackupPath = "default_backup_path"
	KeyDefaultSearchPath = "default_search_path"
)

// JobKeyPrefix starts every generated job key.
const JobKeyPrefix = "job-"

// JobRecord is a job as stored in the settings file. Schedule is kept as
// text, the way users write it; [Store.ListJobs] parses it.
type JobRecord struct {
	Key         string   `yaml:"key" json:"key" toml:"key"`
	Name        string   `yaml:"name" json:"name" toml:"name"`
	Sources     []string `yaml:"sources" json:"sources" toml:"sources"`
	Destination string   `yaml:"destination" json:"destination" toml:"destination"`
	Type        string   `yaml:"type" json:"type" toml:"type"`
	Schedule    string   `yaml:"schedule" json:"schedule" toml:"schedule"`
}

// rawJob is a job as decoded from YAML, before validation.
type rawJob struct {
	Key         string   `mapstructure:"key"`
	Name        string   `mapstructure:"name"`
	Sources     []string `mapstructure:"sources"`
	Destination string   `mapstructure:"destination"`
	Type        string   `mapstructure:"type"`
	Schedule    any      `mapstructure:"schedule"`
}

type document struct {
	Settings map[string]string `yaml:"settings,omitempty"`
	Jobs     []JobRecord       `yaml:"jobs,omitempty"`
}

// Store reads and writes one settings file. Every call re-reads the file,
// so changes made by other processes are always visible.
type Store struct {
	path   string
	logger *slog.Logger
	newKey func() string

	// mu serializes read-modify-write cycles within this process.
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report skipped jobs and watch errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithKeyFunc overrides job key generation.
func WithKeyFunc(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newKey = fn
		}
	}
}

// New returns a Store for the settings file at path. The file need not
// exist yet.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:   filepath.Clean(path),
		logger: slog.Default(),
		newKey: func() string { return JobKeyPrefix + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value of a setting. A key that was never set is reported
// as errors.ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	doc, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := doc.Settings[normalizeKey(key)]
	if !ok {
		return "", errors.NotFoundf("setting %q is not set", key)
	}
	return v, nil
}

// GetOr returns the value of a setting, or def when it is unset or the
// settings file cannot be read.
func (s *Store) GetOr(key, def string) string {
	v, err := s.Get(key)
	if err != nil || v == "" {
		return def
	}
	return v
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	key = normalizeKey(key)
	if key == "" || strings.Contains(key, ".") {
		return errors.ConfigErrorf("invalid setting key %q", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if doc.Settings == nil {
		doc.Settings = make(map[string]string)
	}
	doc.Settings[key] = value
	return s.save(doc)
}

// Settings returns every setting.
func (s *Store) Settings() (map[string]string, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Settings, nil
}

// ListJobs returns the well-formed jobs in file order. Malformed jobs are
// logged and skipped so that one bad entry cannot stop the others.
func (s *Store) ListJobs() ([]backup.Job, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	jobs, skipped := parseJobs(doc.Jobs)
	for _, sk := range skipped {
		s.logger.Warn("skipping malformed job", "key", sk.rec.Key, "name", sk.rec.Name, "error", sk.err)
	}
	return jobs, nil
}

// Problems returns one error per job that ListJobs would skip.
func (s *Store) Problems() ([]error, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	_, skipped := parseJobs(doc.Jobs)
	problems := make([]error, 0, len(skipped))
	for _, sk := range skipped {
		problems = append(problems, errors.Wrapf(sk.err, "job %q", sk.rec.Key))
	}
	return problems, nil
}

type skippedJob struct {
	rec JobRecord
	err error
}

func parseJobs(recs []JobRecord) ([]backup.Job, []skippedJob) {
	jobs := make([]backup.Job, 0, len(recs))
	var skipped []skippedJob
	seen := make(map[string]bool, len(recs))
	for _, rec := range recs {
		job, err := ParseJob(rec)
		if err == nil && seen[job.Key] {
			err = errors.ConfigErrorf("duplicate job key %q", job.Key)
		}
		if err != nil {
			skipped = append(skipped, skippedJob{rec: rec, err: err})
			continue
		}
		seen[job.Key] = true
		jobs = append(jobs, job)
	}
	return jobs, skipped
}

// AddJob validates rec, assigns it a fresh key, and appends it. Any key
// set on rec is ignored.
func (s *Store) AddJob(rec JobRecord) (string, error) {
	rec.Key = s.newKey()
	if _, err := ParseJob(rec); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", err
	}
	doc.Jobs = append(doc.Jobs, rec)
	if err := s.save(doc); err != nil {
		return "", err
	}

	s.logger.Info("job added", "key", rec.Key, "name", rec.Name)
	return rec.Key, nil
}

// RemoveJob deletes the job with the given key.
func (s *Store) RemoveJob(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for i, rec := range doc.Jobs {
		if rec.Key == key {
			doc.Jobs = append(doc.Jobs[:i], doc.Jobs[i+1:]...)
			if err := s.save(doc); err != nil {
				return err
			}
			s.logger.Info("job removed", "key", key)
			return nil
		}
	}
	return errors.NotFoundf("job %q not found", key)
}

// ParseJob validates rec and converts it to a [backup.Job].
func ParseJob(rec JobRecord) (backup.Job, error) {
	var zero backup.Job

	if strings.TrimSpace(rec.Key) == "" {
		return zero, errors.ConfigErrorf("job has no key")
	}
	if strings.TrimSpace(rec.Name) == "" {
		return zero, errors.Mark(errors.Wrapf(errors.ErrMissingName, "job %s", rec.Key), errors.ErrInvalidConfig)
	}
	if strings.ContainsAny(rec.Name, `/\`) {
		return zero, errors.ConfigErrorf("job name %q must not contain path separators", rec.Name)
	}

	sources := make([]string, 0, len(rec.Sources))
	for _, src := range rec.Sources {
		if src = strings.TrimSpace(src); src != "" {
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		return zero, errors.ConfigErrorf("job %s has no sources", rec.Name)
	}
	if strings.TrimSpace(rec.Destination) == "" {
		return zero, errors.ConfigErrorf("job %s has no destination", rec.Name)
	}

	typ, err := backup.ParseType(rec.Type)
	if err != nil {
		return zero, errors.Wrapf(err, "job %s", rec.Name)
	}

	minutes, err := cast.ToIntE(strings.TrimSpace(rec.Schedule))
	if err != nil {
		return zero, errors.ConfigErrorf("job %s: schedule %q is not a number of minutes", rec.Name, rec.Schedule)
	}
	if minutes <= 0 {
		return zero, errors.ConfigErrorf("job %s: schedule must be positive, got %d", rec.Name, minutes)
	}

	return backup.Job{
		Key:         rec.Key,
		Name:        rec.Name,
		Sources:     sources,
		Destination: rec.Destination,
		Type:        typ,
		Schedule:    minutes,
	}, nil
}

// Record converts job back into its stored form.
func Record(job backup.Job) JobRecord {
	return JobRecord{
		Key:         job.Key,
		Name:        job.Name,
		Sources:     job.Sources,
		Destination: job.Destination,
		Type:        string(job.Type),
		Schedule:    strconv.Itoa(job.Schedule),
	}
}

// load reads the settings file. A missing file is an empty document.
func (s *Store) load() (*document, error) {
	data, err := fileutil.ReadFileWithLimit(s.path)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return &document{}, nil
		}
		return nil, errors.Wrap(err, "reading settings file")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, errors.ConfigErrorf("parsing settings file %s: %v", s.path, err)
	}

	doc := &document{Settings: v.GetStringMapString("settings")}

	var raws []rawJob
	if err := v.UnmarshalKey("jobs", &raws); err != nil {
		return nil, errors.ConfigErrorf("parsing jobs in %s: %v", s.path, err)
	}
	for _, raw := range raws {
		doc.Jobs = append(doc.Jobs, JobRecord{
			Key:         raw.Key,
			Name:        raw.Name,
			Sources:     raw.Sources,
			Destination: raw.Destination,
			Type:        raw.Type,
			Schedule:    cast.ToString(raw.Schedule),
		})
	}
	return doc, nil
}

func (s *Store) save(doc *document) error {
	if err := paths.EnsureDir(filepath.Dir(s.path), 0); err != nil {
		return errors.IOErrorf(err, "creating settings directory")
	}
	if err := fileutil.AtomicWriteYAML(s.path, doc); err != nil {
		return errors.Wrapf(err, "writing settings file %s", s.path)
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
