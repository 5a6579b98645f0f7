// Package main is the entry point for the keepsafe CLI.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/thoreinstein/keepsafe/cmd/keepsafe/commands"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/logging"
)

func main() {
	if !logging.SupportsColor(os.Stdout) {
		color.NoColor = true
	}

	if err := commands.Execute(); err != nil {
		exitErr := errors.Classify(err)
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), exitErr)
		if exitErr.Suggestion != "" {
			fmt.Fprintf(os.Stderr, "%s %s\n", color.New(color.Faint).Sprint("Hint:"), exitErr.Suggestion)
		}
		os.Exit(exitErr.Code)
	}
}
