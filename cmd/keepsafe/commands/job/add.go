package job

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/keepsafe/cmd/keepsafe/commands/flags"
	"github.com/thoreinstein/keepsafe/internal/backup"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/logging"
	"github.com/thoreinstein/keepsafe/internal/paths"
	"github.com/thoreinstein/keepsafe/internal/store"
)

var (
	addSources []string
	addDest    string
	addType    string
	addEvery   int
)

func init() {
	addCmd.Flags().StringArrayVarP(&addSources, "source", "s", nil,
		"file or directory to back up (repeatable, kept in order)")
	addCmd.Flags().StringVarP(&addDest, "dest", "d", "",
		"directory that receives each run's backup (required)")
	addCmd.Flags().StringVarP(&addType, "type", "t", string(backup.TypeFolder),
		"backup type: folder, zip")
	addCmd.Flags().IntVarP(&addEvery, "every", "e", 60,
		"interval between runs, in minutes")
	_ = addCmd.MarkFlagRequired("source")
	_ = addCmd.MarkFlagRequired("dest")
	Cmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a scheduled backup job",
	Long: `Add a backup job. The name becomes the prefix of each run's backup, so it
must not contain path separators.`,
	Example: `  # Nightly folder backup of two sources
  keepsafe job add nightly -s ~/docs -s /etc/hosts -d /mnt/backups --every 1440

  # ZIP archive every 15 minutes
  keepsafe job add notes -s ~/notes -d /mnt/backups -t zip -e 15`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

// jobAdder adds jobs. [*store.Store] satisfies it.
type jobAdder interface {
	AddJob(rec store.JobRecord) (string, error)
}

func runAdd(cmd *cobra.Command, args []string) error {
	settings := flags.OpenStore(logging.FromContext(cmd.Context()))

	sources := make([]string, 0, len(addSources))
	for _, src := range addSources {
		abs, err := paths.Abs(src)
		if err != nil {
			return err
		}
		sources = append(sources, abs)
	}
	dest, err := paths.Abs(addDest)
	if err != nil {
		return err
	}

	return runAddWithWriter(cmd.OutOrStdout(), settings, store.JobRecord{
		Name:        args[0],
		Sources:     sources,
		Destination: dest,
		Type:        addType,
		Schedule:    strconv.Itoa(addEvery),
	})
}

func runAddWithWriter(w io.Writer, jobs jobAdder, rec store.JobRecord) error {
	key, err := jobs.AddJob(rec)
	if err != nil {
		return errors.Wrapf(err, "adding job %s", rec.Name)
	}
	fmt.Fprintf(w, "Added job %s (%s), every %s minutes\n", rec.Name, key, rec.Schedule)
	return nil
}
