package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/keepsafe/cmd"
)

var versionShort bool

func init() {
	versionCmd.Flags().BoolVarP(&versionShort, "short", "s", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version, commit, and build date of keepsafe.`,
	Run: func(c *cobra.Command, _ []string) {
		runVersionWithWriter(c.OutOrStdout(), versionShort)
	},
}

func runVersionWithWriter(w io.Writer, short bool) {
	if short {
		fmt.Fprintln(w, cmd.Version)
		return
	}
	fmt.Fprintf(w, "keepsafe version %s\n", cmd.Version)
	fmt.Fprintf(w, "  commit: %s\n", cmd.Commit)
	fmt.Fprintf(w, "  built:  %s\n", cmd.Date)
}
