package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/keepsafe/cmd/keepsafe/commands/flags"
	"github.com/thoreinstein/keepsafe/internal/backup"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/logging"
	"github.com/thoreinstein/keepsafe/internal/store"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify <backup>...",
	Short: "Check backups against their checksum manifests",
	Long: `Recompute the SHA256 digest of every file listed in each backup's manifest
and compare it with the recorded digest. The command fails if any backup
is missing a file or holds an altered one.`,
	Example: `  # Verify an archive
  keepsafe verify /mnt/backups/backup-23012026-100712.zip

  # Verify by name in the search directory
  keepsafe verify nightly-20260123-030000

  See Also: keepsafe restore, keepsafe list`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	logger := logging.FromContext(cmd.Context())
	engine := backup.NewEngine(backup.WithLogger(logger))
	searchDir := flags.OpenStore(logger).GetOr(store.KeyDefaultSearchPath, flags.Config().DefaultSearchPath)

	paths := make([]string, len(args))
	for i, arg := range args {
		paths[i] = resolveBackup(engine.Fs(), arg, searchDir)
	}
	return runVerifyWithWriter(cmd.OutOrStdout(), engine, paths)
}

func runVerifyWithWriter(w io.Writer, engine *backup.Engine, paths []string) error {
	var failed int
	for _, p := range paths {
		archive, err := engine.IsArchive(p)
		if err != nil {
			return err
		}
		ok, err := engine.Verify(p, archive)
		if err != nil {
			return err
		}
		if !ok {
			failed++
			fmt.Fprintf(w, "%s %s: verification failed\n", failMark(), p)
			continue
		}
		fmt.Fprintf(w, "%s %s: intact\n", okMark(), p)
	}

	if failed > 0 {
		return errors.Integrityf("%d of %d backup(s) failed verification", failed, len(paths))
	}
	return nil
}
