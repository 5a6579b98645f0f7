// Package prompt provides interactive CLI prompts for user input.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/thoreinstein/keepsafe/internal/backup"
	"github.com/thoreinstein/keepsafe/internal/errors"
)

// Sentinel errors for prompts.
var (
	ErrNoBackups        = errors.Mark(errors.New("no backups to select from"), errors.ErrNotFound)
	ErrInvalidSelection = errors.New("invalid selection")
	ErrCancelled        = errors.New("prompt cancelled")
)

// Prompter asks questions on a line-oriented terminal.
type Prompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// New creates a Prompter using stdin and stdout.
func New() *Prompter {
	return NewWithIO(os.Stdin, os.Stdout)
}

// NewWithIO creates a Prompter with custom reader and writer for testing.
func NewWithIO(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{
		reader: bufio.NewReader(r),
		writer: w,
	}
}

// SelectBackup prompts the user to choose one of backups, newest first as
// [backup.List] returns them.
//
// Returns:
//   - ErrNoBackups if the list is empty
//   - The only backup, without prompting, if there is one
//   - The first backup on empty input
//   - ErrInvalidSelection if the input is not a listed number
//   - ErrCancelled on EOF (e.g., Ctrl+D)
func (p *Prompter) SelectBackup(backups []backup.Info) (*backup.Info, error) {
	if len(backups) == 0 {
		return nil, ErrNoBackups
	}
	if len(backups) == 1 {
		return &backups[0], nil
	}

	fmt.Fprintln(p.writer, "Available backups:")
	for i, b := range backups {
		fmt.Fprintf(p.writer, "  [%d] %s (%s, %s)\n", i+1, b.Name, b.Type, humanize.Time(b.ModTime))
	}
	fmt.Fprintf(p.writer, "Select [1]: ")

	input, err := p.readLine()
	if err != nil {
		return nil, err
	}
	if input == "" {
		return &backups[0], nil
	}

	selection, err := strconv.Atoi(input)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSelection, "%q is not a number", input)
	}
	if selection < 1 || selection > len(backups) {
		return nil, errors.Wrapf(ErrInvalidSelection, "%d is out of range [1-%d]", selection, len(backups))
	}
	return &backups[selection-1], nil
}

func (p *Prompter) readLine() (string, error) {
	input, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && input == "" {
			return "", ErrCancelled
		}
		if !errors.Is(err, io.EOF) {
			return "", errors.Wrap(err, "reading input")
		}
	}
	return strings.TrimSpace(input), nil
}
