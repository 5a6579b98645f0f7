package doctor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/keepsafe/internal/backup"
	"github.com/thoreinstein/keepsafe/internal/config"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/logging"
	"github.com/thoreinstein/keepsafe/internal/store"
)

func TestConfigCheck(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		file    string
		loadErr error
		want    Severity
	}{
		{name: "defaults", cfg: config.Default(), want: SeverityInfo},
		{name: "loaded file", cfg: config.Default(), file: "/etc/keepsafe/config.yaml", want: SeverityPass},
		{name: "load failed", cfg: config.Default(), loadErr: errors.New("yaml: line 3"), want: SeverityError},
		{
			name: "invalid",
			cfg: func() *config.Config {
				c := config.Default()
				c.Version = 7
				return c
			}(),
			file: "/etc/keepsafe/config.yaml",
			want: SeverityError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewConfigCheck(tt.cfg, tt.file, tt.loadErr).Run()
			assert.Equal(t, tt.want, got.Status, got.Message)
		})
	}
}

func TestSettingsCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	s := store.New(path, store.WithLogger(logging.NewDiscard()))
	fsys := afero.NewOsFs()

	got := NewSettingsCheck(fsys, s).Run()
	assert.Equal(t, SeverityInfo, got.Status)

	_, err := s.AddJob(store.JobRecord{
		Name:        "nightly",
		Sources:     []string{"/data"},
		Destination: "/backups",
		Type:        "zip",
		Schedule:    "60",
	})
	require.NoError(t, err)
	got = NewSettingsCheck(fsys, s).Run()
	assert.Equal(t, SeverityPass, got.Status)

	bad := `jobs:
  - key: job-x
    name: broken
    sources: [/data]
    destination: /backups
    type: tar
    schedule: 5
`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o600))
	got = NewSettingsCheck(fsys, s).Run()
	assert.Equal(t, SeverityWarning, got.Status)
	require.Len(t, got.Problems, 1)
	assert.Contains(t, got.Problems[0], "job-x")

	require.NoError(t, os.WriteFile(path, []byte("jobs: [\n"), 0o600))
	got = NewSettingsCheck(fsys, s).Run()
	assert.Equal(t, SeverityError, got.Status)
	assert.NotEmpty(t, got.FixHint)
}

func TestJobPathsCheck(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/data", 0o755))
	require.NoError(t, fsys.MkdirAll("/backups", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "/not-a-dir", []byte("x"), 0o644))

	job := func(name, dest string, sources ...string) backup.Job {
		return backup.Job{Key: "job-" + name, Name: name, Sources: sources, Destination: dest, Type: backup.TypeZip, Schedule: 60}
	}

	t.Run("none", func(t *testing.T) {
		got := NewJobPathsCheck(fsys, nil).Run()
		assert.Equal(t, SeverityInfo, got.Status)
	})

	t.Run("healthy", func(t *testing.T) {
		got := NewJobPathsCheck(fsys, []backup.Job{job("ok", "/backups", "/data")}).Run()
		assert.Equal(t, SeverityPass, got.Status)
		assert.Empty(t, got.Problems)
	})

	t.Run("missing source and destination", func(t *testing.T) {
		got := NewJobPathsCheck(fsys, []backup.Job{job("gone", "/new-dest", "/data", "/missing")}).Run()
		assert.Equal(t, SeverityWarning, got.Status)
		assert.Equal(t, []string{
			"gone: source /missing is missing and will be skipped",
			"gone: /new-dest does not exist and will be created",
		}, got.Problems)
	})

	t.Run("destination is a file", func(t *testing.T) {
		got := NewJobPathsCheck(fsys, []backup.Job{
			job("fine", "/backups", "/data"),
			job("file", "/not-a-dir", "/data"),
		}).Run()
		assert.Equal(t, SeverityError, got.Status)
		assert.Equal(t, []string{"file: /not-a-dir is not a directory"}, got.Problems)
	})

	t.Run("read-only destination", func(t *testing.T) {
		got := NewJobPathsCheck(afero.NewReadOnlyFs(fsys), []backup.Job{job("ro", "/backups", "/data")}).Run()
		assert.Equal(t, SeverityError, got.Status)
		require.Len(t, got.Problems, 1)
		assert.Contains(t, got.Problems[0], "not writable")
	})
}

func TestDirCheck(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/var/log/keepsafe", 0o755))

	got := NewLogDirCheck(fsys, "/var/log/keepsafe/keepsafe.log").Run()
	assert.Equal(t, SeverityPass, got.Status)
	assert.Equal(t, "/var/log/keepsafe is writable", got.Message)

	// The scratch file is cleaned up.
	entries, err := afero.ReadDir(fsys, "/var/log/keepsafe")
	require.NoError(t, err)
	assert.Empty(t, entries)

	got = NewLogDirCheck(fsys, "").Run()
	assert.Equal(t, SeverityInfo, got.Status)

	got = NewBackupPathCheck(fsys, "/mnt/backups").Run()
	assert.Equal(t, SeverityWarning, got.Status)
	assert.Contains(t, got.FixHint, "default_backup_path")

	got = NewBackupPathCheck(afero.NewReadOnlyFs(fsys), "/var/log/keepsafe").Run()
	assert.Equal(t, SeverityError, got.Status)
}
