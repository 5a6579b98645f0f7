// Package cmd holds keepsafe's build metadata. Release builds set it with
// -ldflags "-X github.com/thoreinstein/keepsafe/cmd.Version=...".
package cmd

import "fmt"

var (
	// Version is the semantic version of the build.
	Version = "dev"
	// Commit is the git commit SHA of the build.
	Commit = "none"
	// Date is the build date.
	Date = "unknown"
)

// Info returns the build metadata on one line, e.g. "1.2.0 (3f2c1ab, 2026-01-23)".
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
