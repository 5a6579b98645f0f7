package fileutil

import (
	"io"
	"io/fs"
	"os"

	"github.com/thoreinstein/keepsafe/internal/errors"
)

// MaxFileSize is the largest settings file we'll read (1MB).
const MaxFileSize = 1024 * 1024

// ErrFileTooLarge indicates that a file exceeded MaxFileSize.
var ErrFileTooLarge = errors.Newf("file exceeds maximum size of %d bytes", MaxFileSize)

// ReadFileWithLimit reads a file up to MaxFileSize.
// A missing file is reported as errors.ErrNotFound and an oversized one as
// [ErrFileTooLarge]; other failures are marked errors.ErrIO.
func ReadFileWithLimit(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Mark(errors.Wrapf(err, "opening %s", path), errors.ErrNotFound)
		}
		return nil, errors.IOErrorf(err, "opening %s", path)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	// The size may change between Stat and read.
	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, errors.IOErrorf(err, "reading %s", path)
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	return data, nil
}
