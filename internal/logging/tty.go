package logging

import (
	"io"
	"os"

	"golang.org/x/term"
)

// Environment variables that switch color off. NoColorEnv follows
// https://no-color.org; KeepsafeNoColorEnv turns it off for keepsafe only.
// Either counts when set, whatever the value.
const (
	NoColorEnv         = "NO_COLOR"
	KeepsafeNoColorEnv = "KEEPSAFE_NO_COLOR"
)

// IsTTY reports whether w is a terminal. Anything with an Fd method, such
// as an *os.File, is checked; other writers never are.
func IsTTY(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// SupportsColor reports whether ANSI colors should be written to w: w must
// be a terminal, TERM must not be "dumb", and neither NO_COLOR nor
// KEEPSAFE_NO_COLOR may be set.
func SupportsColor(w io.Writer) bool {
	return colorAllowed(os.LookupEnv) && IsTTY(w)
}

// colorAllowed applies the environment rules of [SupportsColor].
func colorAllowed(lookup func(string) (string, bool)) bool {
	for _, key := range []string{NoColorEnv, KeepsafeNoColorEnv} {
		if _, set := lookup(key); set {
			return false
		}
	}
	termName, _ := lookup("TERM")
	return termName != "dumb"
}
