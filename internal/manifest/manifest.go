// Package manifest reads and writes checksum manifests.
//
// A manifest is a UTF-8 text file beside a backup with one line per backed
// up file:
//
//	<64-hex-char sha256> <slash/separated/path>
//
// The path may contain spaces; readers split on the first space only.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/thoreinstein/keepsafe/internal/checksum"
	"github.com/thoreinstein/keepsafe/internal/errors"
)

// Suffix is appended to a backup's base name to form its manifest name.
const Suffix = "-checksums.txt"

// ArchiveExt is the extension of archive-form backups.
const ArchiveExt = ".zip"

// maxLine bounds a single manifest line.
const maxLine = 1 << 20

// ErrMalformed indicates a manifest line that is not "<digest> <path>".
var ErrMalformed = errors.New("malformed manifest line")

// Entry is one manifest line.
type Entry struct {
	Digest string
	Path   string
}

func (e Entry) String() string {
	return e.Digest + " " + e.Path
}

// BaseName returns the backup's base name: the last path element with the
// archive extension removed.
func BaseName(backupPath string) string {
	return strings.TrimSuffix(filepath.Base(filepath.Clean(backupPath)), ArchiveExt)
}

// PathFor returns where the manifest of backupPath lives. Archives keep it
// beside the archive; folder backups keep it beside the backup folder, one
// level up from the backed up tree. Both resolve to the same parent.
func PathFor(backupPath string) string {
	clean := filepath.Clean(backupPath)
	return filepath.Join(filepath.Dir(clean), BaseName(clean)+Suffix)
}

// Writer appends manifest lines to a file.
type Writer struct {
	f   afero.File
	buf *bufio.Writer
	n   int
}

// Create truncates or creates the manifest at path.
func Create(fsys afero.Fs, path string) (*Writer, error) {
	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.IOErrorf(err, "creating manifest %s", path)
	}
	return &Writer{f: f, buf: bufio.NewWriter(f)}, nil
}

// Add appends one line. rel is normalized to forward slashes.
func (w *Writer) Add(digest, rel string) error {
	if !checksum.Valid(digest) {
		return errors.Newf("invalid digest %q for %s", digest, rel)
	}
	if _, err := fmt.Fprintf(w.buf, "%s %s\n", digest, filepath.ToSlash(rel)); err != nil {
		return errors.IOError(err, "writing manifest line")
	}
	w.n++
	return nil
}

// Len returns the number of lines written so far.
func (w *Writer) Len() int {
	return w.n
}

// Close flushes buffered lines and closes the file.
func (w *Writer) Close() error {
	flushErr := w.buf.Flush()
	closeErr := w.f.Close()
	if flushErr != nil {
		return errors.IOError(flushErr, "flushing manifest")
	}
	return errors.IOError(closeErr, "closing manifest")
}

// ParseLine splits a manifest line on its first space.
func ParseLine(line string) (Entry, error) {
	line = strings.TrimSuffix(line, "\r")
	digest, path, ok := strings.Cut(line, " ")
	if !ok || path == "" || !checksum.Valid(digest) {
		return Entry{}, errors.Wrapf(ErrMalformed, "%q", line)
	}
	return Entry{Digest: digest, Path: path}, nil
}

// Entries yields the entries of r in file order. Blank lines are skipped.
// Iteration stops after the first error.
func Entries(r io.Reader) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLine)
		for sc.Scan() {
			line := sc.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			e, err := ParseLine(line)
			if !yield(e, err) || err != nil {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(Entry{}, errors.IOError(err, "reading manifest"))
		}
	}
}

// Load reads the whole manifest at path. A missing file is reported as
// errors.ErrNotFound.
func Load(fsys afero.Fs, path string) ([]Entry, error) {
	f, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NotFoundf("checksum file not found: %s", path)
		}
		return nil, errors.IOErrorf(err, "opening manifest %s", path)
	}
	defer f.Close()

	var entries []Entry
	for e, err := range Entries(f) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
