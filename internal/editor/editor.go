// Package editor launches the user's preferred text editor, used to edit
// the settings file by hand.
package editor

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/thoreinstein/keepsafe/internal/errors"
)

// EnvEditor overrides $EDITOR and $VISUAL for keepsafe only.
const EnvEditor = "KEEPSAFE_EDITOR"

// Open runs the editor on path and waits for it to exit. The editor
// command may carry arguments, e.g. EDITOR="code --wait".
func Open(ctx context.Context, path string) error {
	argv := strings.Fields(detectEditor())
	if len(argv) == 0 {
		return errors.New("no editor configured")
	}

	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running editor %s", argv[0])
	}
	return nil
}

// detectEditor returns the editor command. Fallback chain:
// $KEEPSAFE_EDITOR → $EDITOR → $VISUAL → nano → vi
func detectEditor() string {
	for _, env := range []string{EnvEditor, "EDITOR", "VISUAL"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}

	if _, err := exec.LookPath("nano"); err == nil {
		return "nano"
	}
	return "vi"
}
