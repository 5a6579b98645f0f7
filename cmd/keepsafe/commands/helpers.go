package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"

	"github.com/thoreinstein/keepsafe/internal/logging"
	"github.com/thoreinstein/keepsafe/internal/paths"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
)

func okMark() string {
	return okColor.Sprint("✓")
}

func failMark() string {
	return failColor.Sprint("✗")
}

// progressMeter draws a percentage on a terminal. It draws nothing when w
// is not a terminal, so piped output stays clean.
type progressMeter struct {
	w     io.Writer
	label string
	tty   bool
	last  int
}

func newProgressMeter(w io.Writer, label string) *progressMeter {
	return &progressMeter{w: w, label: label, tty: logging.IsTTY(w), last: -1}
}

func (p *progressMeter) Progress(percent int) {
	if !p.tty || percent == p.last {
		return
	}
	p.last = percent
	fmt.Fprintf(p.w, "\r%s %3d%%", p.label, percent)
}

// clear erases the meter line, if one was drawn.
func (p *progressMeter) clear() {
	if p.tty && p.last >= 0 {
		fmt.Fprint(p.w, "\r\033[K")
	}
}

// absPaths makes every path absolute, so that "." is stored under the
// directory's real name.
func absPaths(list []string) ([]string, error) {
	out := make([]string, 0, len(list))
	for _, p := range list {
		abs, err := paths.Abs(p)
		if err != nil {
			return nil, err
		}
		out = append(out, abs)
	}
	return out, nil
}

// resolveBackup interprets arg as a path, or as a bare backup name inside
// searchDir when no such path exists.
func resolveBackup(fsys afero.Fs, arg, searchDir string) string {
	if filepath.IsAbs(arg) || strings.ContainsRune(arg, filepath.Separator) {
		return arg
	}
	if ok, _ := afero.Exists(fsys, arg); ok {
		return arg
	}
	return filepath.Join(searchDir, arg)
}
