package job

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/keepsafe/cmd/keepsafe/commands/flags"
	"github.com/thoreinstein/keepsafe/internal/backup"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/logging"
	"github.com/thoreinstein/keepsafe/internal/store"
)

// Output formats for job list.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTOML  = "toml"
)

var listFormat string

func init() {
	listCmd.Flags().StringVarP(&listFormat, "format", "f", formatTable,
		"output format: table, json, yaml, toml")
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List scheduled backup jobs",
	Long: `List the well-formed jobs in the settings file, in file order. Malformed
jobs are reported in the log and left out; run with -v to see them.`,
	Example: `  keepsafe job list
  keepsafe job list --format toml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings := flags.OpenStore(logging.FromContext(cmd.Context()))
		return runListWithWriter(cmd.OutOrStdout(), settings, listFormat)
	},
}

// jobLister lists jobs. [*store.Store] satisfies it.
type jobLister interface {
	ListJobs() ([]backup.Job, error)
}

// jobsDocument is the structured output of job list.
type jobsDocument struct {
	Jobs []store.JobRecord `json:"jobs" yaml:"jobs" toml:"jobs"`
}

func runListWithWriter(w io.Writer, jobs jobLister, format string) error {
	list, err := jobs.ListJobs()
	if err != nil {
		return err
	}

	doc := jobsDocument{Jobs: make([]store.JobRecord, len(list))}
	for i, j := range list {
		doc.Jobs[i] = store.Record(j)
	}

	switch strings.ToLower(format) {
	case formatTable:
		return outputTable(w, list)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(doc), "encoding output")
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(err, "encoding output")
		}
		return errors.Wrap(enc.Close(), "encoding output")
	case formatTOML:
		out, err := toml.Marshal(doc)
		if err != nil {
			return errors.Wrap(err, "encoding output")
		}
		_, err = w.Write(out)
		return errors.Wrap(err, "writing output")
	default:
		return errors.NewUserError(
			errors.Newf("unknown format %q", format),
			"Use one of: table, json, yaml, toml")
	}
}

func outputTable(w io.Writer, list []backup.Job) error {
	if len(list) == 0 {
		fmt.Fprintln(w, "No jobs configured")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Add one with: keepsafe job add <name> --source <path> --dest <dir>")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tEVERY\tDESTINATION\tSOURCES\tKEY")
	for _, j := range list {
		fmt.Fprintf(tw, "%s\t%s\t%dm\t%s\t%s\t%s\n",
			j.Name, j.Type, j.Schedule, j.Destination, strings.Join(j.Sources, ", "), j.Key)
	}
	return errors.Wrap(tw.Flush(), "writing output")
}
