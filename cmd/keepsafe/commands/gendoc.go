package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/thoreinstein/keepsafe/cmd"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/paths"
)

var (
	genDocDir string
	genDocMan bool
)

var genDocCmd = &cobra.Command{
	Use:    "gen-doc",
	Short:  "Generate reference documentation for the CLI",
	Hidden: true,
	RunE: func(c *cobra.Command, _ []string) error {
		return runGenDocWithWriter(c.OutOrStdout(), rootCmd, genDocDir, genDocMan)
	},
}

func init() {
	genDocCmd.Flags().StringVarP(&genDocDir, "dir", "d", "", "output directory for documentation")
	genDocCmd.Flags().BoolVar(&genDocMan, "man", false, "generate man pages instead of Markdown")
	_ = genDocCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(genDocCmd)
}

func runGenDocWithWriter(w io.Writer, root *cobra.Command, dir string, man bool) error {
	if err := paths.EnsureDir(dir, 0o755); err != nil {
		return errors.IOErrorf(err, "creating output directory")
	}

	var err error
	if man {
		err = doc.GenManTree(root, &doc.GenManHeader{
			Title:   "KEEPSAFE",
			Section: "1",
			Source:  "keepsafe " + cmd.Version,
		}, dir)
	} else {
		err = doc.GenMarkdownTreeCustom(root, dir, filePrepender, linkHandler)
	}
	if err != nil {
		return errors.Wrap(err, "generating documentation")
	}

	fmt.Fprintf(w, "Documentation generated in %s\n", dir)
	return nil
}

func filePrepender(filename string) string {
	name := filepath.Base(filename)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	// keepsafe_job_add.md -> keepsafe job add
	title := strings.ReplaceAll(base, "_", " ")

	return fmt.Sprintf(`---
title: "%s"
description: "Reference for %s"
---
`, title, title)
}

func linkHandler(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return "/docs/reference/" + strings.ToLower(base) + "/"
}
