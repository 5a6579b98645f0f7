package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/keepsafe/cmd/keepsafe/commands/flags"
	"github.com/thoreinstein/keepsafe/internal/backup"
	"github.com/thoreinstein/keepsafe/internal/config"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/logging"
	"github.com/thoreinstein/keepsafe/internal/scheduler"
	"github.com/thoreinstein/keepsafe/internal/store"
)

var createdAt = time.Date(2026, 1, 23, 10, 7, 12, 0, time.UTC)

// fakeSettings records settings in memory.
type fakeSettings map[string]string

func (f fakeSettings) Set(key, value string) error {
	f[key] = value
	return nil
}

// answer is a canned confirmer.
type answer bool

func (a answer) Confirm(string) (bool, error) {
	return bool(a), nil
}

func newTestEngine(t *testing.T, fsys afero.Fs) *backup.Engine {
	t.Helper()
	return backup.NewEngine(backup.WithFs(fsys), backup.WithLogger(logging.ForTest(t)))
}

// seed lays out /data/a.txt and /data/sub/b.txt.
func seed(t *testing.T, fsys afero.Fs) []string {
	t.Helper()
	require.NoError(t, fsys.MkdirAll("/data/sub", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "/data/a.txt", []byte("hi"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/data/sub/b.txt", []byte("yo"), 0o644))
	return []string{"/data/a.txt", "/data/sub"}
}

// createAt makes an ad hoc backup of the seeded items in /backups.
func createAt(t *testing.T, engine *backup.Engine, compress bool, at time.Time) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, runCreateWithWriter(&buf, engine, fakeSettings{}, []string{"/data/a.txt", "/data/sub"}, "/backups", compress, at))
	typ := backup.TypeFolder
	if compress {
		typ = backup.TypeZip
	}
	return backup.ArtifactPath("/backups", backup.AdHocName(at), typ)
}

func TestCreate(t *testing.T) {
	for _, compress := range []bool{false, true} {
		fsys := afero.NewMemMapFs()
		items := seed(t, fsys)
		engine := newTestEngine(t, fsys)
		settings := fakeSettings{}

		var buf bytes.Buffer
		require.NoError(t, runCreateWithWriter(&buf, engine, settings, items, "/backups", compress, createdAt))

		want := "/backups/backup-23012026-100712"
		if compress {
			want += ".zip"
		}
		assert.Equal(t, "✓ Created "+want+"\n  2 files, 1 folders, 4 B\n", buf.String())

		exists, err := afero.Exists(fsys, "/backups/backup-23012026-100712-checksums.txt")
		require.NoError(t, err)
		assert.True(t, exists)

		info := settings[store.KeyLastBackupInfo]
		assert.True(t, strings.HasPrefix(info, "date: "), info)
		assert.Contains(t, info, "name: backup-23012026-100712, ")
		assert.Contains(t, info, "files: 2, folders: 1, size: 4 B")
	}
}

func TestCreate_FailureLeavesNothing(t *testing.T) {
	base := afero.NewMemMapFs()
	items := seed(t, base)
	engine := newTestEngine(t, afero.NewReadOnlyFs(base))
	settings := fakeSettings{}

	err := runCreateWithWriter(&bytes.Buffer{}, engine, settings, items, "/backups", true, createdAt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrIO), "%v", err)
	assert.Empty(t, settings)

	exists, err := afero.DirExists(base, "/backups")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreate_KeepsExistingBackup(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys)
	engine := newTestEngine(t, fsys)

	for i, compress := range []bool{false, true} {
		at := createdAt.Add(time.Duration(i) * time.Minute)
		path := createAt(t, engine, compress, at)
		settings := fakeSettings{}

		// Same second, and an item list that could never be written.
		items := []string{"/data/a.txt", "/data/a.txt"}
		err := runCreateWithWriter(&bytes.Buffer{}, engine, settings, items, "/backups", compress, at)
		require.Error(t, err)
		assert.True(t, errors.Is(err, backup.ErrExists), "%v", err)
		assert.Equal(t, errors.ExitUser, errors.Classify(err).Code)
		assert.Empty(t, settings)

		ok, err := engine.Verify(path, compress)
		require.NoError(t, err)
		assert.True(t, ok, "compress=%v: existing backup damaged", compress)
	}

	// A folder and an archive of the same name would share one manifest.
	err := runCreateWithWriter(&bytes.Buffer{}, engine, fakeSettings{}, []string{"/data/a.txt"}, "/backups", true, createdAt)
	assert.True(t, errors.Is(err, backup.ErrExists), "%v", err)
}

func TestCreate_DuplicateNamesLeaveNothing(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/x", 0o755))
	require.NoError(t, fsys.MkdirAll("/y", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "/x/notes.txt", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/y/notes.txt", []byte("y"), 0o644))
	engine := newTestEngine(t, fsys)

	err := runCreateWithWriter(&bytes.Buffer{}, engine, fakeSettings{}, []string{"/x/notes.txt", "/y/notes.txt"}, "/backups", false, createdAt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "would both be stored as")

	exists, err := afero.Exists(fsys, "/backups")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestVerify(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys)
	engine := newTestEngine(t, fsys)
	folder := createAt(t, engine, false, createdAt)
	archive := createAt(t, engine, true, createdAt.Add(time.Second))

	var buf bytes.Buffer
	require.NoError(t, runVerifyWithWriter(&buf, engine, []string{folder, archive}))
	assert.Equal(t, "✓ "+folder+": intact\n✓ "+archive+": intact\n", buf.String())

	require.NoError(t, afero.WriteFile(fsys, filepath.Join(folder, "sub", "b.txt"), []byte("YO"), 0o644))

	buf.Reset()
	err := runVerifyWithWriter(&buf, engine, []string{folder, archive})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrIntegrity), "%v", err)
	assert.Contains(t, buf.String(), "✗ "+folder+": verification failed")
	assert.Contains(t, buf.String(), "✓ "+archive+": intact")
}

func TestVerify_NotABackup(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys)
	engine := newTestEngine(t, fsys)

	err := runVerifyWithWriter(&bytes.Buffer{}, engine, []string{"/data/a.txt"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound), "%v", err)
}

func TestRestore(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys)
	engine := newTestEngine(t, fsys)
	archive := createAt(t, engine, true, createdAt)

	var buf bytes.Buffer
	require.NoError(t, runRestoreWithWriter(&buf, engine, archive, "/restore"))
	assert.Equal(t, "✓ Restored "+archive+" to /restore\n", buf.String())

	data, err := afero.ReadFile(fsys, "/restore/sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "yo", string(data))
}

func TestRestore_FailedVerification(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys)
	engine := newTestEngine(t, fsys)
	folder := createAt(t, engine, false, createdAt)
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(folder, "a.txt"), []byte("HI"), 0o644))

	var buf bytes.Buffer
	err := runRestoreWithWriter(&buf, engine, folder, "/restore")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrIntegrity), "%v", err)
	assert.Contains(t, buf.String(), "nothing was restored")

	exists, err := afero.DirExists(fsys, "/restore")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPickBackup(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys)
	engine := newTestEngine(t, fsys)
	createAt(t, engine, true, createdAt)
	createAt(t, engine, false, createdAt.Add(time.Hour))

	var offered []string
	path, err := pickBackup(engine, "/backups", backup.AdHocPrefix, func(backups []backup.Info) (*backup.Info, error) {
		for _, b := range backups {
			offered = append(offered, b.Name)
		}
		return &backups[len(backups)-1], nil
	})
	require.NoError(t, err)
	assert.Len(t, offered, 2)
	assert.Contains(t, offered, "backup-23012026-100712")
	assert.Contains(t, offered, "backup-23012026-110712")
	assert.Contains(t, []string{"/backups/backup-23012026-100712.zip", "/backups/backup-23012026-110712"}, path)

	_, err = pickBackup(engine, "/nowhere", backup.AdHocPrefix, func([]backup.Info) (*backup.Info, error) {
		t.Fatal("chooser called without backups")
		return nil, nil
	})
	assert.True(t, errors.Is(err, errors.ErrNotFound), "%v", err)
}

func TestList(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys)
	engine := newTestEngine(t, fsys)
	createAt(t, engine, true, createdAt)
	createAt(t, engine, false, createdAt.Add(time.Hour))

	var buf bytes.Buffer
	require.NoError(t, runListWithWriter(&buf, fsys, "/backups", backup.AdHocPrefix, false))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, buf.String(), "backup-23012026-100712")
	assert.Contains(t, buf.String(), "backup-23012026-110712")
	assert.NotContains(t, buf.String(), "checksums")

	buf.Reset()
	require.NoError(t, runListWithWriter(&buf, fsys, "/backups", backup.AdHocPrefix, true))
	var infos []backup.Info
	require.NoError(t, json.Unmarshal(buf.Bytes(), &infos))
	require.Len(t, infos, 2)
	for _, info := range infos {
		assert.True(t, info.HasManifest, info.Name)
	}
}

func TestList_Empty(t *testing.T) {
	fsys := afero.NewMemMapFs()

	var buf bytes.Buffer
	require.NoError(t, runListWithWriter(&buf, fsys, "/backups", backup.AdHocPrefix, false))
	assert.Contains(t, buf.String(), "No backups found in /backups")

	buf.Reset()
	require.NoError(t, runListWithWriter(&buf, fsys, "/backups", backup.AdHocPrefix, true))
	assert.JSONEq(t, "[]", buf.String())
}

func TestRemove(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys)
	engine := newTestEngine(t, fsys)
	archive := createAt(t, engine, true, createdAt)

	var buf bytes.Buffer
	require.NoError(t, runRemoveWithWriter(&buf, engine, []string{archive}, answer(false)))
	assert.Equal(t, "Skipped "+archive+"\n", buf.String())
	exists, err := afero.Exists(fsys, archive)
	require.NoError(t, err)
	assert.True(t, exists)

	buf.Reset()
	require.NoError(t, runRemoveWithWriter(&buf, engine, []string{archive}, answer(true)))
	assert.Equal(t, "✓ Removed "+archive+"\n", buf.String())
	for _, p := range []string{archive, "/backups/backup-23012026-100712-checksums.txt"} {
		exists, err := afero.Exists(fsys, p)
		require.NoError(t, err)
		assert.False(t, exists, p)
	}
}

func TestRemove_RefusesNonBackups(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seed(t, fsys)
	engine := newTestEngine(t, fsys)

	err := runRemoveWithWriter(&bytes.Buffer{}, engine, []string{"/data/a.txt"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound), "%v", err)

	exists, err := afero.Exists(fsys, "/data/a.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestResolveBackup(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "local.zip", []byte("x"), 0o644))

	tests := []struct {
		arg  string
		want string
	}{
		{"/mnt/b/backup-1.zip", "/mnt/b/backup-1.zip"},
		{"sub/backup-1.zip", "sub/backup-1.zip"},
		{"local.zip", "local.zip"},
		{"backup-1.zip", "/search/backup-1.zip"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveBackup(fsys, tt.arg, "/search"), tt.arg)
	}
}

func TestSettingsCommands(t *testing.T) {
	s := store.New(filepath.Join(t.TempDir(), "settings.yaml"), store.WithLogger(logging.ForTest(t)))

	var buf bytes.Buffer
	require.NoError(t, runSettingsListWithWriter(&buf, s))
	assert.Equal(t, "No settings\n", buf.String())

	buf.Reset()
	require.NoError(t, runSettingsGetWithWriter(&buf, s, store.KeyDefaultBackupPath))
	assert.Equal(t, "not set\n", buf.String())

	require.NoError(t, s.Set("Default_Backup_Path", "/mnt/backups"))
	require.NoError(t, s.Set(store.KeyLastBackupInfo, "date: 2026-01-23 10:07:12"))

	buf.Reset()
	require.NoError(t, runSettingsGetWithWriter(&buf, s, store.KeyDefaultBackupPath))
	assert.Equal(t, "/mnt/backups\n", buf.String())

	buf.Reset()
	require.NoError(t, runSettingsListWithWriter(&buf, s))
	assert.Equal(t, "default_backup_path: /mnt/backups\nlast_backup_info: date: 2026-01-23 10:07:12\n", buf.String())
}

func TestRunSchedule(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	s := store.New(filepath.Join(t.TempDir(), "settings.yaml"), store.WithLogger(logging.NewDiscard()))
	_, err := s.AddJob(store.JobRecord{
		Name:        "nightly",
		Sources:     []string{"/data"},
		Destination: "/mnt/backups",
		Type:        "zip",
		Schedule:    "1440",
	})
	require.NoError(t, err)

	engine := backup.NewEngine(backup.WithFs(afero.NewMemMapFs()), backup.WithLogger(logging.NewDiscard()))
	coord := scheduler.New(engine, s, logging.NewEventLog(logging.NewDiscard()),
		scheduler.WithLogger(logging.NewDiscard()))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	require.NoError(t, runScheduleWithWriter(ctx, &buf, coord, logging.NewDiscard()))

	out := buf.String()
	assert.Contains(t, out, "nightly")
	assert.Contains(t, out, "24h0m0s")
	assert.Contains(t, out, "Scheduler running")
	assert.True(t, strings.HasSuffix(out, "Stopping scheduler\n"), out)
	assert.Empty(t, coord.Status())
}

func TestExecute_SettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.ConfigDirEnv, dir)
	t.Setenv("KEEPSAFE_SETTINGS_FILE", filepath.Join(dir, "settings.yaml"))
	t.Cleanup(func() { flags.SetConfig(nil) })

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"settings", "set", "default_search_path", "/mnt/backups"})
	require.NoError(t, Execute())
	assert.Equal(t, "Set default_search_path = /mnt/backups\n", buf.String())

	buf.Reset()
	rootCmd.SetArgs([]string{"settings", "get", "default_search_path"})
	require.NoError(t, Execute())
	assert.Equal(t, "/mnt/backups\n", buf.String())

	assert.Equal(t, filepath.Join(dir, "settings.yaml"), flags.Config().SettingsFile)
}

func TestExecute_Version(t *testing.T) {
	t.Setenv(config.ConfigDirEnv, t.TempDir())
	t.Cleanup(func() { flags.SetConfig(nil) })

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute())
	assert.True(t, strings.HasPrefix(buf.String(), "keepsafe version "), buf.String())
	assert.Contains(t, buf.String(), "commit:")
}

func TestVersion_Short(t *testing.T) {
	var buf bytes.Buffer
	runVersionWithWriter(&buf, true)
	assert.Equal(t, "dev\n", buf.String())
}

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}
