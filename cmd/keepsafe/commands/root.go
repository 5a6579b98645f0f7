// Package commands implements the CLI commands for keepsafe.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/keepsafe/cmd"
	"github.com/thoreinstein/keepsafe/cmd/keepsafe/commands/flags"
	"github.com/thoreinstein/keepsafe/cmd/keepsafe/commands/job"
	"github.com/thoreinstein/keepsafe/internal/config"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/logging"
)

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// configFile holds the value of the --config flag.
var configFile string

// logLevel is the level chosen by setupLogging.
var logLevel = slog.LevelWarn

// configLoadErr holds any error that occurred during config loading.
var configLoadErr error

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv, -vvv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: $XDG_CONFIG_HOME/keepsafe/config.yaml)")

	rootCmd.Version = cmd.Version
	rootCmd.SetVersionTemplate("keepsafe version {{.Version}}\n")

	// Silence errors and usage so main controls error output
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(job.Cmd)
}

func initConfig() {
	config.Init()
	cfg, err := config.Load(configFile)
	configLoadErr = err
	if err == nil {
		flags.SetConfig(cfg)
	}
}

var rootCmd = &cobra.Command{
	Use:   "keepsafe",
	Short: "Point-in-time backups with checksum verification",
	Long: `keepsafe backs up files and directories into a plain folder or a ZIP
archive. Every backup carries a SHA256 checksum manifest that is checked
before anything is restored.

Scheduled jobs live in the settings file and are run by 'keepsafe schedule
run', which picks up edits to the job list while it runs.`,
	Example: `  # Back up two directories into a ZIP archive
  keepsafe create ~/docs ~/photos --zip --dest /mnt/backups

  # List and verify backups
  keepsafe list /mnt/backups
  keepsafe verify /mnt/backups/backup-23012026-100712.zip

  # Schedule a nightly job and run the scheduler
  keepsafe job add nightly --source ~/docs --dest /mnt/backups --every 1440
  keepsafe schedule run

  See Also: keepsafe job, keepsafe settings`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}
		// These work without a valid config
		switch cmd.Name() {
		case "help", "version", "doctor":
			return nil
		}
		if configLoadErr != nil {
			return errors.NewConfigError(configLoadErr)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// setupLogging configures the default logger based on verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(errors.New("conflicting flags"), "cannot use --quiet and --verbose together")
	}

	if quiet {
		logLevel = slog.LevelError
	} else {
		v := verbosity
		// CLI flags take precedence, but if not set, check env var
		if v == 0 {
			switch os.Getenv("KEEPSAFE_DEBUG") {
			case "1", "true":
				v = 2
			case "2":
				v = 3
			}
		}
		logLevel = logging.LevelFromVerbosity(v)
	}

	logger := logging.New(logging.Config{
		Level:  logLevel,
		Format: logging.ParseFormat(logFormat),
		Output: cmd.ErrOrStderr(),
	})
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))

	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
