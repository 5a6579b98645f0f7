package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/keepsafe/cmd/keepsafe/commands/flags"
	"github.com/thoreinstein/keepsafe/internal/backup"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/logging"
	"github.com/thoreinstein/keepsafe/internal/paths"
	"github.com/thoreinstein/keepsafe/internal/store"
)

var (
	createDest string
	createZip  bool
)

func init() {
	createCmd.Flags().StringVarP(&createDest, "dest", "d", "",
		"directory that receives the backup (default: the default_backup_path setting)")
	createCmd.Flags().BoolVarP(&createZip, "zip", "z", false,
		"store the backup as a ZIP archive instead of a folder")
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create <path>...",
	Short: "Back up files and directories",
	Long: `Back up files and directories, in the order given, into a new backup named
backup-<ddMMyyyy-HHmmss>. A checksum manifest is written beside it.

Paths that do not exist are skipped, and a backup directory inside one of
the paths is left out. If the backup fails part way, the partial backup is
removed; an existing backup of the same name is never touched. A summary of the last successful backup is kept
in the last_backup_info setting.`,
	Example: `  # Back up into a folder under the default backup path
  keepsafe create ~/docs /etc/hosts

  # Back up into a ZIP archive on an external drive
  keepsafe create ~/docs --zip --dest /mnt/backups

  See Also:
    keepsafe verify  - Check a backup against its manifest
    keepsafe restore - Restore a backup`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCreate,
}

// settingsWriter records settings. [*store.Store] satisfies it.
type settingsWriter interface {
	Set(key, value string) error
}

func runCreate(cmd *cobra.Command, args []string) error {
	logger := logging.FromContext(cmd.Context())
	settings := flags.OpenStore(logger)

	items, err := absPaths(args)
	if err != nil {
		return err
	}

	dir := createDest
	if dir == "" {
		dir = settings.GetOr(store.KeyDefaultBackupPath, flags.Config().DefaultBackupPath)
	}
	if dir, err = paths.Abs(dir); err != nil {
		return err
	}

	engine := backup.NewEngine(backup.WithLogger(logger))
	return runCreateWithWriter(cmd.OutOrStdout(), engine, settings, items, dir, createZip, time.Now())
}

func runCreateWithWriter(w io.Writer, engine *backup.Engine, settings settingsWriter, items []string, dir string, compress bool, now time.Time) error {
	typ := backup.TypeFolder
	if compress {
		typ = backup.TypeZip
	}
	path := backup.ArtifactPath(dir, backup.AdHocName(now), typ)

	meter := newProgressMeter(w, "Backing up")
	result, err := engine.CreateBackup(items, path, compress, meter)
	meter.clear()
	if err != nil {
		if errors.Is(err, backup.ErrExists) {
			return errors.NewUserError(err, "Wait a second and run the command again")
		}
		if rmErr := backup.Remove(engine.Fs(), path); rmErr != nil {
			return errors.Wrapf(err, "creating backup (cleanup also failed: %v)", rmErr)
		}
		return errors.Wrap(err, "creating backup")
	}

	if err := settings.Set(store.KeyLastBackupInfo, result.String()); err != nil {
		return errors.Wrap(err, "recording last backup")
	}

	fmt.Fprintf(w, "%s Created %s\n", okMark(), path)
	fmt.Fprintf(w, "  %d files, %d folders, %s\n", result.TotalFiles, result.TotalFolders, result.FormatSize())
	return nil
}
