package commands

import (
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thoreinstein/keepsafe/cmd/keepsafe/commands/flags"
	"github.com/thoreinstein/keepsafe/internal/config"
	"github.com/thoreinstein/keepsafe/internal/doctor"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/logging"
	"github.com/thoreinstein/keepsafe/internal/store"
)

var (
	doctorJSON bool
	doctorAll  bool
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false,
		"output results as JSON")
	doctorCmd.Flags().BoolVarP(&doctorAll, "all", "a", false,
		"show every check, including those that passed")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and job problems",
	Long: `Run diagnostic checks on the config file, the settings file, and the
directories that backups read from and write to.

Output modes:
  (default)   Show errors and warnings
  --all       Show all checks including passed ones
  --json      Machine-readable JSON output
  --quiet     No output, exit code only

Exit codes:
  0 - No errors or warnings
  1 - Warnings present, no errors
  2 - Errors present`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if doctorJSON && (doctorAll || quiet) {
			return errors.NewUserError(errors.New("conflicting flags"), "--json cannot be combined with --all or --quiet")
		}
		return nil
	},
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cfg := flags.Config()
	// Malformed jobs are reported by the checks rather than logged.
	s := store.New(cfg.SettingsFile, store.WithLogger(logging.NewDiscard()))
	runner := newDoctorRunner(afero.NewOsFs(), cfg, viper.ConfigFileUsed(), configLoadErr, s)

	format := doctor.FormatText
	if doctorJSON {
		format = doctor.FormatJSON
	}
	return runDoctorWithWriter(cmd.OutOrStdout(), runner, format, doctorAll, quiet)
}

func newDoctorRunner(fsys afero.Fs, cfg *config.Config, file string, loadErr error, s *store.Store) *doctor.Runner {
	runner := doctor.NewRunner()
	runner.AddCheck(doctor.NewConfigCheck(cfg, file, loadErr))
	runner.AddCheck(doctor.NewSettingsCheck(fsys, s))
	// An unreadable settings file is already an error above.
	if jobs, err := s.ListJobs(); err == nil {
		runner.AddCheck(doctor.NewJobPathsCheck(fsys, jobs))
	}
	runner.AddCheck(doctor.NewBackupPathCheck(fsys, s.GetOr(store.KeyDefaultBackupPath, cfg.DefaultBackupPath)))
	runner.AddCheck(doctor.NewLogDirCheck(fsys, cfg.Log.File))
	return runner
}

func runDoctorWithWriter(w io.Writer, runner *doctor.Runner, format doctor.Format, all, silent bool) error {
	report := runner.Run()

	if !silent {
		if err := doctor.NewReporter(w, format, all).Report(report); err != nil {
			return err
		}
	}

	switch {
	case report.HasErrors():
		return errors.NewSystemError(errors.Newf("%d check(s) failed", report.Summary.Errors), "Run keepsafe doctor --all for details")
	case report.HasWarnings():
		return errors.NewUserError(errors.Newf("%d check(s) reported warnings", report.Summary.Warnings), "Run keepsafe doctor --all for details")
	}
	return nil
}
