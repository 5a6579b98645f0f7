package job

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/keepsafe/cmd/keepsafe/commands/flags"
	"github.com/thoreinstein/keepsafe/internal/backup"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/logging"
)

func init() {
	Cmd.AddCommand(removeCmd)
}

var removeCmd = &cobra.Command{
	Use:     "remove <name|key>",
	Aliases: []string{"rm"},
	Short:   "Remove a scheduled backup job",
	Long: `Remove a job by key, or by name when exactly one job has that name.
Backups the job already made are kept.`,
	Example: `  keepsafe job remove nightly
  keepsafe job remove job-1f0c4b7e-0d5e-4c49-9a59-e2a1b7c0d8f1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := flags.OpenStore(logging.FromContext(cmd.Context()))
		return runRemoveWithWriter(cmd.OutOrStdout(), settings, args[0])
	},
}

// jobRemover lists and removes jobs. [*store.Store] satisfies it.
type jobRemover interface {
	ListJobs() ([]backup.Job, error)
	RemoveJob(key string) error
}

func runRemoveWithWriter(w io.Writer, jobs jobRemover, ref string) error {
	key, err := resolveKey(jobs, ref)
	if err != nil {
		return err
	}
	if err := jobs.RemoveJob(key); err != nil {
		return errors.Wrapf(err, "removing job %s", ref)
	}
	fmt.Fprintf(w, "Removed job %s\n", ref)
	return nil
}

// resolveKey maps a job name to its key. Keys pass through unchanged.
func resolveKey(jobs jobRemover, ref string) (string, error) {
	list, err := jobs.ListJobs()
	if err != nil {
		return "", err
	}

	var keys []string
	for _, j := range list {
		if j.Key == ref {
			return ref, nil
		}
		if j.Name == ref {
			keys = append(keys, j.Key)
		}
	}

	switch len(keys) {
	case 0:
		// Malformed jobs are not listed but can still be removed by key.
		return ref, nil
	case 1:
		return keys[0], nil
	default:
		return "", errors.NewUserError(
			errors.Newf("%d jobs are named %q", len(keys), ref),
			"Remove by key instead; run: keepsafe job list")
	}
}
