package backup

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	"github.com/thoreinstein/keepsafe/internal/checksum"
	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/walk"
)

// sink realizes a backup from the nodes of a walk. Both implementations
// see exactly the same sequence of nodes.
type sink interface {
	// dir records a directory node.
	dir(n walk.Node) error

	// file stores a file node and returns its digest and stored size.
	file(n walk.Node) (digest string, size int64, err error)

	close() error
}

// archiveSink writes every file as one ZIP entry named by its Rel path.
// Directories are implicit in their descendants' names; only empty
// directories get an explicit "name/" marker entry.
type archiveSink struct {
	fsys afero.Fs
	f    afero.File
	zw   *zip.Writer
}

func newArchiveSink(fsys afero.Fs, dest string) (*archiveSink, error) {
	if err := fsys.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, errors.IOErrorf(err, "creating parent of %s", dest)
	}
	f, err := fsys.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.IOErrorf(err, "creating archive %s", dest)
	}
	return &archiveSink{fsys: fsys, f: f, zw: zip.NewWriter(f)}, nil
}

func (s *archiveSink) dir(n walk.Node) error {
	if !n.Empty {
		return nil
	}
	hdr := &zip.FileHeader{
		Name:     n.Rel + "/",
		Method:   zip.Store,
		Modified: n.ModTime,
	}
	hdr.SetMode(fs.ModeDir | n.Mode)
	if _, err := s.zw.CreateHeader(hdr); err != nil {
		return errors.IOErrorf(err, "adding directory %s to archive", n.Rel)
	}
	return nil
}

func (s *archiveSink) file(n walk.Node) (string, int64, error) {
	src, err := s.fsys.Open(n.Path)
	if err != nil {
		return "", 0, errors.IOErrorf(err, "opening %s", n.Path)
	}
	defer src.Close()

	hdr := &zip.FileHeader{
		Name:     n.Rel,
		Method:   zip.Deflate,
		Modified: n.ModTime,
	}
	hdr.SetMode(n.Mode)

	w, err := s.zw.CreateHeader(hdr)
	if err != nil {
		return "", 0, errors.IOErrorf(err, "adding %s to archive", n.Rel)
	}

	h := checksum.New()
	size, err := io.Copy(io.MultiWriter(w, h), src)
	if err != nil {
		return "", 0, errors.IOErrorf(err, "archiving %s", n.Path)
	}
	return checksum.Sum(h), size, nil
}

func (s *archiveSink) close() error {
	zipErr := s.zw.Close()
	closeErr := s.f.Close()
	if zipErr != nil {
		return errors.IOError(zipErr, "finishing archive")
	}
	return errors.IOError(closeErr, "closing archive")
}

// folderSink mirrors the walk into a directory tree rooted at dest.
type folderSink struct {
	fsys afero.Fs
	root string
}

func newFolderSink(fsys afero.Fs, dest string) (*folderSink, error) {
	if err := fsys.MkdirAll(dest, 0o755); err != nil {
		return nil, errors.IOErrorf(err, "creating backup folder %s", dest)
	}
	return &folderSink{fsys: fsys, root: dest}, nil
}

func (s *folderSink) dir(n walk.Node) error {
	p := filepath.Join(s.root, filepath.FromSlash(n.Rel))
	if err := s.fsys.MkdirAll(p, 0o755); err != nil {
		return errors.IOErrorf(err, "creating %s", p)
	}
	return nil
}

func (s *folderSink) file(n walk.Node) (string, int64, error) {
	dst := filepath.Join(s.root, filepath.FromSlash(n.Rel))
	return copyFile(s.fsys, n.Path, dst)
}

func (s *folderSink) close() error {
	return nil
}

// copyFile copies src to dst, returning the SHA256 digest and byte count.
// The destination is created with 0644 permissions, then updated to match
// the source's permissions.
func copyFile(fsys afero.Fs, src, dst string) (digest string, size int64, err error) {
	srcFile, err := fsys.Open(src)
	if err != nil {
		return "", 0, errors.IOError(err, "opening source file")
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return "", 0, errors.IOError(err, "stat source file")
	}

	dstFile, err := fsys.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", 0, errors.IOError(err, "creating destination file")
	}

	// Compute hash while copying
	h := checksum.New()
	w := io.MultiWriter(dstFile, h)

	size, err = io.Copy(w, srcFile)
	if err != nil {
		dstFile.Close()
		return "", 0, errors.IOError(err, "copying file")
	}

	if err := dstFile.Close(); err != nil {
		return "", 0, errors.IOError(err, "closing destination file")
	}

	if err := fsys.Chmod(dst, srcInfo.Mode().Perm()); err != nil {
		return "", 0, errors.IOError(err, "setting permissions")
	}

	return checksum.Sum(h), size, nil
}
