package backup

import (
	"io/fs"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"github.com/thoreinstein/keepsafe/internal/checksum"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/manifest"
)

// Verify checks every manifest entry of the backup at backupPath against
// its stored content. It stops at the first missing entry or digest
// mismatch and reports false; it only returns an error when the manifest is
// absent ([errors.ErrNotFound]) or the backup cannot be read.
func (e *Engine) Verify(backupPath string, archive bool) (bool, error) {
	manifestPath := manifest.PathFor(backupPath)
	entries, err := manifest.Load(e.fs, manifestPath)
	if err != nil {
		if errors.Is(err, manifest.ErrMalformed) {
			e.logger.Warn("manifest is malformed", "manifest", manifestPath, "error", err)
			return false, nil
		}
		return false, err
	}

	if archive {
		return e.verifyArchive(backupPath, entries)
	}
	return e.verifyFolder(backupPath, entries)
}

func (e *Engine) verifyArchive(backupPath string, entries []manifest.Entry) (bool, error) {
	zr, closer, err := e.openArchive(backupPath)
	if err != nil {
		if errors.Is(err, errors.ErrIntegrity) {
			e.logger.Warn("archive is unreadable", "archive", backupPath, "error", err)
			return false, nil
		}
		return false, err
	}
	defer closer.Close()

	index := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		if _, dup := index[zf.Name]; !dup {
			index[zf.Name] = zf
		}
	}

	for _, entry := range entries {
		zf, ok := index[entry.Path]
		if !ok {
			e.logger.Warn("file not found in archive", "archive", backupPath, "path", entry.Path)
			return false, nil
		}

		actual, err := digestEntry(zf)
		if err != nil {
			e.logger.Warn("archive entry is unreadable", "path", entry.Path, "error", err)
			return false, nil
		}

		e.logger.Debug("verifying archive entry",
			"path", entry.Path, "expected", entry.Digest, "actual", actual)
		if actual != entry.Digest {
			e.logger.Warn("checksum mismatch", "archive", backupPath, "path", entry.Path)
			return false, nil
		}
	}
	return true, nil
}

func digestEntry(zf *zip.File) (string, error) {
	rc, err := zf.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return checksum.Reader(rc)
}

func (e *Engine) verifyFolder(backupPath string, entries []manifest.Entry) (bool, error) {
	for _, entry := range entries {
		p, err := safeJoin(backupPath, entry.Path)
		if err != nil {
			e.logger.Warn("manifest entry escapes the backup", "path", entry.Path)
			return false, nil
		}

		info, err := e.fs.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				e.logger.Warn("file not found", "path", filepath.ToSlash(p))
				return false, nil
			}
			return false, errors.IOErrorf(err, "verifying %s", entry.Path)
		}
		if !info.Mode().IsRegular() {
			e.logger.Warn("not a regular file", "path", filepath.ToSlash(p), "mode", info.Mode().String())
			return false, nil
		}

		actual, err := checksum.File(e.fs, p)
		if err != nil {
			return false, errors.Wrapf(err, "verifying %s", entry.Path)
		}

		e.logger.Debug("verifying file",
			"path", entry.Path, "expected", entry.Digest, "actual", actual)
		if actual != entry.Digest {
			e.logger.Warn("checksum mismatch", "backup", backupPath, "path", entry.Path)
			return false, nil
		}
	}
	return true, nil
}
