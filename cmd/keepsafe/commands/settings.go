package commands

import (
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/keepsafe/cmd/keepsafe/commands/flags"
	"github.com/thoreinstein/keepsafe/internal/editor"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/logging"
	"github.com/thoreinstein/keepsafe/internal/paths"
	"github.com/thoreinstein/keepsafe/internal/store"
)

func init() {
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsEditCmd)
	rootCmd.AddCommand(settingsCmd)
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage keepsafe settings",
	Long: `Manage the settings stored in the settings file, next to the scheduled
jobs. Keys are case-insensitive.

Well-known keys:
  default_backup_path   where 'keepsafe create' puts backups without --dest
  default_search_path   where list, verify, restore, and remove look for backups
  last_backup_info      summary of the last backup made by 'keepsafe create'

Without a subcommand, lists all settings.`,
	Example: `  # List all settings
  keepsafe settings

  # Change where ad hoc backups go
  keepsafe settings set default_backup_path /mnt/backups

  # Show the last backup
  keepsafe settings get last_backup_info

See Also: keepsafe job`,
	RunE: runSettingsList,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := flags.OpenStore(logging.FromContext(cmd.Context()))
		return runSettingsGetWithWriter(cmd.OutOrStdout(), settings, args[0])
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting",
	Long:  `Set a setting. Keys must not contain dots.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := flags.OpenStore(logging.FromContext(cmd.Context()))
		if err := settings.Set(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
		return nil
	},
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	RunE:  runSettingsList,
}

var settingsEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the settings file in $EDITOR",
	Long: `Open the settings file in your editor. A running scheduler picks up
job changes once the file is saved.

The editor is taken from $KEEPSAFE_EDITOR, $EDITOR, or $VISUAL, falling
back to nano or vi.`,
	Example: `  # Edit jobs by hand
  keepsafe settings edit

  # Use a specific editor
  EDITOR="code --wait" keepsafe settings edit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := flags.Config().SettingsFile
		if err := paths.EnsureDir(filepath.Dir(path), paths.DefaultDirPerm); err != nil {
			return errors.IOErrorf(err, "creating settings directory")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Location: %s\n", path)
		return editor.Open(cmd.Context(), path)
	},
}

// settingsReader reads settings. [*store.Store] satisfies it.
type settingsReader interface {
	Get(key string) (string, error)
	Settings() (map[string]string, error)
}

func runSettingsGetWithWriter(w io.Writer, settings settingsReader, key string) error {
	v, err := settings.Get(key)
	if errors.Is(err, errors.ErrNotFound) {
		fmt.Fprintln(w, "not set")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(w, v)
	return nil
}

func runSettingsList(cmd *cobra.Command, _ []string) error {
	settings := flags.OpenStore(logging.FromContext(cmd.Context()))
	return runSettingsListWithWriter(cmd.OutOrStdout(), settings)
}

func runSettingsListWithWriter(w io.Writer, settings settingsReader) error {
	all, err := settings.Settings()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Fprintln(w, "No settings")
		return nil
	}
	for _, k := range slices.Sorted(maps.Keys(all)) {
		fmt.Fprintf(w, "%s: %s\n", k, all[k])
	}
	return nil
}

var _ settingsReader = (*store.Store)(nil)
