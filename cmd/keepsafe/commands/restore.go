package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/keepsafe/cmd/keepsafe/commands/flags"
	"github.com/thoreinstein/keepsafe/internal/backup"
	"github.com/thoreinstein/keepsafe/internal/cli/prompt"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/logging"
	"github.com/thoreinstein/keepsafe/internal/paths"
	"github.com/thoreinstein/keepsafe/internal/store"
)

var (
	restoreTo     string
	restoreSearch string
	restorePrefix string
)

func init() {
	restoreCmd.Flags().StringVarP(&restoreTo, "to", "t", "",
		"directory to restore into (required)")
	restoreCmd.Flags().StringVar(&restoreSearch, "search-dir", "",
		"where to look for backups given by name (default: the default_search_path setting)")
	restoreCmd.Flags().StringVar(&restorePrefix, "prefix", backup.AdHocPrefix,
		"name prefix of the backups offered for selection")
	_ = restoreCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(restoreCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore [backup]",
	Short: "Verify and restore a backup",
	Long: `Restore a backup into a directory. The backup is checked against its
checksum manifest first; if any file is missing or altered, nothing is
restored.

The backup may be a path or a name in the search directory. Without one,
the backups in the search directory are offered for selection.`,
	Example: `  # Restore a specific archive
  keepsafe restore /mnt/backups/backup-23012026-100712.zip --to ~/restored

  # Pick from the backups in the search directory
  keepsafe restore --to ~/restored

  # Pick among a job's backups
  keepsafe restore --to ~/restored --prefix nightly-

  See Also:
    keepsafe list   - List backups
    keepsafe verify - Verify without restoring`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

// chooser picks one of the listed backups.
type chooser func(backups []backup.Info) (*backup.Info, error)

func runRestore(cmd *cobra.Command, args []string) error {
	logger := logging.FromContext(cmd.Context())
	engine := backup.NewEngine(backup.WithLogger(logger))

	searchDir := restoreSearch
	if searchDir == "" {
		searchDir = flags.OpenStore(logger).GetOr(store.KeyDefaultSearchPath, flags.Config().DefaultSearchPath)
	}

	var source string
	if len(args) > 0 {
		source = resolveBackup(engine.Fs(), args[0], searchDir)
	} else {
		choose := prompt.New().SelectBackup
		if logging.IsTTY(os.Stdin) && logging.IsTTY(os.Stdout) {
			choose = fuzzyChoose
		}
		picked, err := pickBackup(engine, searchDir, restorePrefix, choose)
		if errors.Is(err, prompt.ErrCancelled) {
			fmt.Fprintln(cmd.OutOrStdout(), "Restore cancelled")
			return nil
		}
		if err != nil {
			return err
		}
		source = picked
	}

	dest, err := paths.Abs(restoreTo)
	if err != nil {
		return err
	}
	return runRestoreWithWriter(cmd.OutOrStdout(), engine, source, dest)
}

// pickBackup lists the backups in dir and lets choose pick one.
func pickBackup(engine *backup.Engine, dir, prefix string, choose chooser) (string, error) {
	backups, err := backup.List(engine.Fs(), dir, prefix)
	if err != nil {
		return "", err
	}
	picked, err := choose(backups)
	if err != nil {
		return "", err
	}
	return picked.Path, nil
}

func runRestoreWithWriter(w io.Writer, engine *backup.Engine, source, dest string) error {
	meter := newProgressMeter(w, "Restoring")
	err := engine.Restore(source, dest, meter)
	meter.clear()
	if err != nil {
		if errors.Is(err, errors.ErrIntegrity) {
			fmt.Fprintf(w, "%s %s failed verification; nothing was restored\n", failMark(), source)
		}
		return err
	}

	fmt.Fprintf(w, "%s Restored %s to %s\n", okMark(), source, dest)
	return nil
}

func fuzzyChoose(backups []backup.Info) (*backup.Info, error) {
	idx, err := fuzzyfinder.Find(
		backups,
		func(i int) string {
			return backups[i].Name
		},
		fuzzyfinder.WithHeader("Select a backup to restore"),
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			b := backups[i]
			return fmt.Sprintf("Name: %s\nType: %s\nSize: %s\nModified: %s (%s)\nManifest: %t",
				b.Name,
				b.Type,
				humanize.IBytes(uint64(max(b.Size, 0))),
				b.ModTime.Local().Format("2006-01-02 15:04:05"),
				humanize.Time(b.ModTime),
				b.HasManifest,
			)
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil, prompt.ErrCancelled
		}
		return nil, errors.Wrap(err, "selecting backup")
	}
	return &backups[idx], nil
}
