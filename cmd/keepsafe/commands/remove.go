package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/keepsafe/cmd/keepsafe/commands/flags"
	"github.com/thoreinstein/keepsafe/internal/backup"
	"github.com/thoreinstein/keepsafe/internal/cli/prompt"
	"github.com/thoreinstein/keepsafe/internal/logging"
	"github.com/thoreinstein/keepsafe/internal/store"
)

var removeYes bool

func init() {
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "remove without asking")
	rootCmd.AddCommand(removeCmd)
}

var removeCmd = &cobra.Command{
	Use:     "remove <backup>...",
	Aliases: []string{"rm"},
	Short:   "Remove backups and their manifests",
	Long: `Remove backups. Each backup's checksum manifest is removed with it.

A backup may be given as a path or as a name in the search directory.`,
	Example: `  # Remove an archive, asking first
  keepsafe remove /mnt/backups/backup-23012026-100712.zip

  # Remove by name without asking
  keepsafe remove backup-23012026-100712 --yes

  See Also: keepsafe list`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

// confirmer asks a yes/no question. [*prompt.Prompter] satisfies it.
type confirmer interface {
	Confirm(question string) (bool, error)
}

func runRemove(cmd *cobra.Command, args []string) error {
	logger := logging.FromContext(cmd.Context())
	engine := backup.NewEngine(backup.WithLogger(logger))
	searchDir := flags.OpenStore(logger).GetOr(store.KeyDefaultSearchPath, flags.Config().DefaultSearchPath)

	paths := make([]string, len(args))
	for i, arg := range args {
		paths[i] = resolveBackup(engine.Fs(), arg, searchDir)
	}

	var ask confirmer
	if !removeYes {
		ask = prompt.New()
	}
	return runRemoveWithWriter(cmd.OutOrStdout(), engine, paths, ask)
}

// runRemoveWithWriter removes each backup in paths. A nil ask removes
// without asking.
func runRemoveWithWriter(w io.Writer, engine *backup.Engine, paths []string, ask confirmer) error {
	for _, p := range paths {
		// Refuse anything that is not a backup.
		if _, err := engine.IsArchive(p); err != nil {
			return err
		}

		if ask != nil {
			ok, err := ask.Confirm(fmt.Sprintf("Remove %s?", p))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(w, "Skipped %s\n", p)
				continue
			}
		}

		if err := backup.Remove(engine.Fs(), p); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s Removed %s\n", okMark(), p)
	}
	return nil
}
