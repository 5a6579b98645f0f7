package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/keepsafe/cmd/keepsafe/commands/flags"
	"github.com/thoreinstein/keepsafe/internal/backup"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/logging"
	"github.com/thoreinstein/keepsafe/internal/store"
)

var (
	listPrefix string
	listJSON   bool
)

func init() {
	listCmd.Flags().StringVar(&listPrefix, "prefix", backup.AdHocPrefix,
		"only list backups whose names start with this prefix")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list [dir]",
	Short: "List backups",
	Long: `List the backups in a directory, newest first. Without a directory, the
default_search_path setting is used.

Ad hoc backups are listed by default. Use --prefix with a job name and a
trailing dash to list a scheduled job's backups.`,
	Example: `  # List ad hoc backups in the search directory
  keepsafe list

  # List a job's backups on an external drive
  keepsafe list /mnt/backups --prefix nightly-

  # Output as JSON
  keepsafe list --json

  See Also:
    keepsafe verify - Verify a backup
    keepsafe remove - Remove a backup`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	logger := logging.FromContext(cmd.Context())

	dir := flags.OpenStore(logger).GetOr(store.KeyDefaultSearchPath, flags.Config().DefaultSearchPath)
	if len(args) > 0 {
		dir = args[0]
	}
	return runListWithWriter(cmd.OutOrStdout(), afero.NewOsFs(), dir, listPrefix, listJSON)
}

func runListWithWriter(w io.Writer, fsys afero.Fs, dir, prefix string, asJSON bool) error {
	backups, err := backup.List(fsys, dir, prefix)
	if err != nil && !errors.Is(err, backup.ErrNoBackupsFound) {
		return errors.Wrapf(err, "listing backups in %s", dir)
	}

	if asJSON {
		if backups == nil {
			backups = []backup.Info{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(backups), "encoding output")
	}

	if len(backups) == 0 {
		fmt.Fprintf(w, "No backups found in %s\n", dir)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Create one with: keepsafe create <path>...")
		return nil
	}

	missing := color.New(color.FgYellow).Sprint("missing")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tSIZE\tMODIFIED\tMANIFEST")
	for _, b := range backups {
		manifest := "ok"
		if !b.HasManifest {
			manifest = missing
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			b.Name,
			b.Type,
			humanize.IBytes(uint64(max(b.Size, 0))),
			humanize.Time(b.ModTime),
			manifest,
		)
	}
	return errors.Wrap(tw.Flush(), "writing output")
}
