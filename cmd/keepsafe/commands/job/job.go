// Package job provides CLI commands for managing scheduled backup jobs.
package job

import "github.com/spf13/cobra"

// Cmd is the root job command.
var Cmd = &cobra.Command{
	Use:   "job",
	Short: "Manage scheduled backup jobs",
	Long: `Manage the backup jobs run by 'keepsafe schedule run'.

Jobs are stored in the settings file. A running scheduler picks up added,
changed, and removed jobs without a restart. Each run of a job writes
<destination>/<name>-<yyyyMMdd-HHmmss>, plus .zip for zip jobs.`,
	Example: `  # Back up documents every hour into ZIP archives
  keepsafe job add hourly --source ~/docs --dest /mnt/backups --type zip --every 60

  # List jobs
  keepsafe job list

  # Remove a job by name or key
  keepsafe job remove hourly

  See Also:
    keepsafe job add    - Add a job
    keepsafe job list   - List jobs
    keepsafe job remove - Remove a job`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}
