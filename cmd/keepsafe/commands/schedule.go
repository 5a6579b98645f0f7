package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/keepsafe/cmd"
	"github.com/thoreinstein/keepsafe/cmd/keepsafe/commands/flags"
	"github.com/thoreinstein/keepsafe/internal/backup"
	"github.com/thoreinstein/keepsafe/internal/config"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/logging"
	"github.com/thoreinstein/keepsafe/internal/paths"
	"github.com/thoreinstein/keepsafe/internal/scheduler"
	"github.com/thoreinstein/keepsafe/internal/store"
)

func init() {
	scheduleCmd.AddCommand(scheduleRunCmd)
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run scheduled backup jobs",
	Long: `Run the backup jobs configured with 'keepsafe job'.

See Also: keepsafe job`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var scheduleRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler in the foreground",
	Long: `Run every configured job on its interval until interrupted.

Edits to the job list, whether through 'keepsafe job' or by hand, take
effect without a restart. A run that is still going when its next one is
due causes that run to be skipped. Outcomes are logged as events to stderr
and to the rotating log file (log.file in the config).

Under systemd (Type=notify), readiness is reported once the jobs are
scheduled.`,
	Example: `  # Run in a terminal
  keepsafe schedule run

  # Run with debug logging
  keepsafe schedule run -vv`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	cfg := flags.Config()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logFile, err := openLogFile(cfg.Log)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	logger := logging.New(logging.Config{
		Level:     logLevel,
		Format:    logging.ParseFormat(logFormat),
		Output:    cmd.ErrOrStderr(),
		File:      logFile,
		FileLevel: slog.LevelInfo,
	})

	settings := store.New(cfg.SettingsFile, store.WithLogger(logger))
	engine := backup.NewEngine(backup.WithLogger(logger))
	coord := scheduler.New(engine, settings, logging.NewEventLog(logger),
		scheduler.WithLogger(logger),
		scheduler.WithDebounce(cfg.Debounce),
	)

	return runScheduleWithWriter(ctx, cmd.OutOrStdout(), coord, logger)
}

func runScheduleWithWriter(ctx context.Context, w io.Writer, coord *scheduler.Coordinator, logger *slog.Logger) error {
	logger.Info("starting scheduler", "version", cmd.Info())
	if err := coord.Start(ctx); err != nil {
		return errors.Wrap(err, "starting scheduler")
	}
	defer coord.Stop()

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn("notifying systemd", "error", err)
	} else if sent {
		logger.Debug("notified systemd of readiness")
	}

	printStatus(w, coord.Status())
	fmt.Fprintln(w, "Scheduler running; press Ctrl+C to stop")

	<-ctx.Done()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	fmt.Fprintln(w, "Stopping scheduler")
	return nil
}

func printStatus(w io.Writer, status []scheduler.JobStatus) {
	if len(status) == 0 {
		fmt.Fprintln(w, "No jobs scheduled. Add one with: keepsafe job add")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tEVERY\tTYPE\tDESTINATION")
	for _, s := range status {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Job.Name, s.Interval, s.Job.Type, s.Job.Destination)
	}
	tw.Flush()
}

// openLogFile opens the rotating log file, or returns nil when logging to
// a file is disabled.
func openLogFile(cfg config.LogConfig) (io.WriteCloser, error) {
	if cfg.File == "" {
		return nil, nil
	}
	if err := paths.EnsureDir(filepath.Dir(cfg.File), paths.DefaultDirPerm); err != nil {
		return nil, errors.IOErrorf(err, "creating log directory")
	}
	return logging.NewRotatingFile(logging.FileConfig{
		Path:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}), nil
}
