package backup

import (
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/manifest"
	"github.com/thoreinstein/keepsafe/internal/walk"
)

// IsArchive reports whether source is an archive-form backup. A directory
// is a folder-form backup; anything else is not a backup at all.
func (e *Engine) IsArchive(source string) (bool, error) {
	info, err := e.fs.Stat(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, errors.NotFoundf("backup not found: %s", source)
		}
		return false, errors.IOErrorf(err, "stat %s", source)
	}
	if info.IsDir() {
		return false, nil
	}
	if info.Mode().IsRegular() && strings.EqualFold(filepath.Ext(source), manifest.ArchiveExt) {
		return true, nil
	}
	return false, errors.NotFoundf("%s is neither a backup folder nor a %s archive", source, manifest.ArchiveExt)
}

// Restore verifies source and then recreates its files under destination.
// Nothing is written when verification fails.
func (e *Engine) Restore(source, destination string, p Progress) error {
	archive, err := e.IsArchive(source)
	if err != nil {
		return err
	}

	ok, err := e.Verify(source, archive)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Integrityf("backup integrity verification failed for %s; restore aborted", source)
	}

	if err := e.fs.MkdirAll(destination, 0o755); err != nil {
		return errors.IOErrorf(err, "creating restore destination %s", destination)
	}

	if archive {
		err = e.extractArchive(source, destination, p)
	} else {
		err = e.copyTree(source, destination, p)
	}
	if err != nil {
		return err
	}

	e.logger.Info("backup restored", "source", source, "destination", destination)
	return nil
}

func (e *Engine) extractArchive(source, destination string, p Progress) error {
	zr, closer, err := e.openArchive(source)
	if err != nil {
		return err
	}
	defer closer.Close()

	tr := newTracker(p, len(zr.File))
	for _, zf := range zr.File {
		target, err := safeJoin(destination, zf.Name)
		if err != nil {
			return err
		}

		// Entries with an empty leaf name are directory markers.
		if strings.HasSuffix(zf.Name, "/") {
			if err := e.fs.MkdirAll(target, 0o755); err != nil {
				return errors.IOErrorf(err, "creating %s", target)
			}
			tr.step()
			continue
		}

		if err := e.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return errors.IOErrorf(err, "creating %s", filepath.Dir(target))
		}
		if err := e.extractFile(zf, target); err != nil {
			return err
		}
		tr.step()
	}

	tr.finish()
	return nil
}

func (e *Engine) extractFile(zf *zip.File, target string) error {
	rc, err := zf.Open()
	if err != nil {
		return errors.IOErrorf(err, "opening archive entry %s", zf.Name)
	}
	defer rc.Close()

	perm := zf.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := e.fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return errors.IOErrorf(err, "creating %s", target)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return errors.IOErrorf(err, "extracting %s", zf.Name)
	}
	return errors.IOErrorf(out.Close(), "closing %s", target)
}

func (e *Engine) copyTree(source, destination string, p Progress) error {
	total := 0
	for _, err := range walk.Tree(e.fs, source) {
		if err != nil {
			return err
		}
		total++
	}

	tr := newTracker(p, total)
	for n, err := range walk.Tree(e.fs, source) {
		if err != nil {
			return err
		}

		target := filepath.Join(destination, filepath.FromSlash(n.Rel))
		switch n.Kind {
		case walk.Dir:
			if err := e.fs.MkdirAll(target, 0o755); err != nil {
				return errors.IOErrorf(err, "creating %s", target)
			}
		case walk.File:
			if _, _, err := copyFile(e.fs, n.Path, target); err != nil {
				return errors.Wrapf(err, "restoring %s", n.Rel)
			}
		}
		tr.step()
	}

	tr.finish()
	return nil
}

// openArchive opens source as a ZIP archive. The returned closer releases
// the underlying file.
func (e *Engine) openArchive(source string) (*zip.Reader, io.Closer, error) {
	f, err := e.fs.Open(source)
	if err != nil {
		return nil, nil, errors.IOErrorf(err, "opening archive %s", source)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, errors.IOErrorf(err, "stat archive %s", source)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, nil, errors.Integrityf("reading archive %s: %v", source, err)
	}
	return zr, f, nil
}

// safeJoin resolves an archive or manifest path below root, rejecting
// names that would land outside it.
func safeJoin(root, name string) (string, error) {
	if name == "" || path.IsAbs(name) || filepath.IsAbs(name) {
		return "", errors.Integrityf("illegal entry name %q", name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.Integrityf("entry %q escapes the destination", name)
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}
