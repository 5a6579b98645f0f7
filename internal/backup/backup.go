package backup

import (
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/manifest"
	"github.com/thoreinstein/keepsafe/internal/walk"
)

// ErrExists marks a [Engine.CreateBackup] call whose destination is already
// taken. Nothing was written, so the caller must not clean up.
var ErrExists = errors.New("backup already exists")

// Engine creates, verifies, and restores backups.
//
// Engine methods are synchronous and keep no state between calls, so one
// Engine may serve concurrent callers. Progress callbacks run on the
// calling goroutine.
type Engine struct {
	fs     afero.Fs
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithFs sets the filesystem the engine reads and writes.
func WithFs(fsys afero.Fs) Option {
	return func(e *Engine) {
		if fsys != nil {
			e.fs = fsys
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the time source used to stamp results.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine on the OS filesystem unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		fs:     afero.NewOsFs(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fs returns the filesystem the engine operates on.
func (e *Engine) Fs() afero.Fs {
	return e.fs
}

// CreateBackup backs up items into destination, as a ZIP archive when
// compress is set or as a mirrored folder otherwise, and writes the
// checksum manifest beside it.
//
// Items are processed in the given order; items that exist as neither file
// nor directory are skipped. An existing destination or manifest is never
// overwritten; the call fails with [ErrExists]. A destination inside a source directory is
// left out of the backup along with its manifest. Items that would share an
// entry name fail the call before anything is written. The caller
// guarantees items and destination are non-empty. On failure the partial
// artifact is left in place: removing it is the caller's job (see [Remove]).
func (e *Engine) CreateBackup(items []string, destination string, compress bool, p Progress) (*Result, error) {
	typ := TypeFolder
	if compress {
		typ = TypeZip
	}

	exclude := []string{destination, manifest.PathFor(destination)}
	for _, target := range exclude {
		taken, err := afero.Exists(e.fs, target)
		if err != nil {
			return nil, errors.IOErrorf(err, "checking destination %s", target)
		}
		if taken {
			return nil, errors.Mark(errors.Newf("%s already exists", target), ErrExists)
		}
	}

	total, err := walk.Count(e.fs, items, exclude...)
	if err != nil {
		return nil, errors.Wrap(err, "counting backup items")
	}

	result := &Result{
		Date: e.now(),
		Name: manifest.BaseName(destination),
		Type: typ,
	}

	var s sink
	if compress {
		s, err = newArchiveSink(e.fs, destination)
	} else {
		s, err = newFolderSink(e.fs, destination)
	}
	if err != nil {
		return nil, err
	}

	mw, err := manifest.Create(e.fs, manifest.PathFor(destination))
	if err != nil {
		s.close()
		return nil, err
	}

	e.logger.Debug("creating backup",
		"destination", destination, "type", typ, "items", len(items), "total", total)

	tr := newTracker(p, total)
	if err := e.writeItems(items, exclude, s, mw, result, tr); err != nil {
		s.close()
		mw.Close()
		return nil, err
	}

	if err := s.close(); err != nil {
		mw.Close()
		return nil, err
	}
	e.logger.Debug("manifest written",
		"path", manifest.PathFor(destination), "entries", mw.Len(), "files", result.TotalFiles)
	if err := mw.Close(); err != nil {
		return nil, err
	}

	tr.finish()

	e.logger.Info("backup created",
		"name", result.Name,
		"type", result.Type,
		"files", result.TotalFiles,
		"folders", result.TotalFolders,
		"size", result.FormatSize(),
	)

	return result, nil
}

func (e *Engine) writeItems(items, exclude []string, s sink, mw *manifest.Writer, result *Result, tr *tracker) error {
	for n, err := range walk.Items(e.fs, items, exclude...) {
		if err != nil {
			return err
		}

		switch n.Kind {
		case walk.Dir:
			if err := s.dir(n); err != nil {
				return err
			}
			result.TotalFolders++

		case walk.File:
			digest, size, err := s.file(n)
			if err != nil {
				return errors.Wrapf(err, "backing up %s", n.Path)
			}
			if err := mw.Add(digest, n.Rel); err != nil {
				return err
			}
			result.TotalFiles++
			result.TotalSize += size
		}

		tr.step()
	}
	return nil
}
