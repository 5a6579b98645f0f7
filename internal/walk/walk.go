// Package walk enumerates backup sources depth-first.
//
// Every top-level item yields its own node, then, for directories, the
// regular files of each directory before its subdirectories. Entries are
// visited in the order [afero.ReadDir] returns them, which is sorted by
// name, so the count pass and the write pass of a backup always agree.
package walk

import (
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/thoreinstein/keepsafe/internal/errors"
)

// Kind distinguishes directories from regular files.
type Kind int

const (
	// File is a regular file (symlinks to regular files included).
	File Kind = iota
	// Dir is a directory.
	Dir
)

func (k Kind) String() string {
	if k == Dir {
		return "dir"
	}
	return "file"
}

// Node is one enumerated file or directory.
type Node struct {
	Kind Kind

	// Path is the location on the source filesystem.
	Path string

	// Rel is the slash-separated entry name: the base name of the top-level
	// item followed by the path below it.
	Rel string

	// Size is the file size in bytes; zero for directories.
	Size int64

	// Mode holds the permission bits of the source.
	Mode fs.FileMode

	ModTime time.Time

	// Empty is set on directories without any entries.
	Empty bool
}

// Items walks every item in order. Items that do not exist are skipped, as
// are the paths in exclude and everything below them. Iteration stops at
// the first error, which is yielded with a zero Node.
func Items(fsys afero.Fs, items []string, exclude ...string) iter.Seq2[Node, error] {
	skip := newPathSet(exclude)
	return func(yield func(Node, error) bool) {
		for _, item := range items {
			if skip.has(item) {
				continue
			}
			info, err := fsys.Stat(item)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				yield(Node{}, errors.IOErrorf(err, "stat %s", item))
				return
			}

			base := filepath.Base(filepath.Clean(item))
			if !info.IsDir() {
				if !info.Mode().IsRegular() {
					continue
				}
				if !yield(fileNode(item, base, info), nil) {
					return
				}
				continue
			}

			if !walkDir(fsys, item, base, info, skip, yield) {
				return
			}
		}
	}
}

// Tree walks a single directory. Rel names are relative to root itself,
// so the root node has an empty Rel.
func Tree(fsys afero.Fs, root string) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		info, err := fsys.Stat(root)
		if err != nil {
			yield(Node{}, errors.IOErrorf(err, "stat %s", root))
			return
		}
		if !info.IsDir() {
			yield(Node{}, errors.IOErrorf(fs.ErrInvalid, "%s is not a directory", root))
			return
		}
		walkDir(fsys, root, "", info, nil, yield)
	}
}

// Count returns the number of nodes Items would yield. Two items that
// would be stored under the same entry name make Count fail.
func Count(fsys afero.Fs, items []string, exclude ...string) (int, error) {
	n := 0
	owners := make(map[string]string)
	for node, err := range Items(fsys, items, exclude...) {
		if err != nil {
			return 0, err
		}
		if !strings.Contains(node.Rel, "/") {
			if prev, ok := owners[node.Rel]; ok {
				return 0, errors.Newf("%s and %s would both be stored as %q", prev, node.Path, node.Rel)
			}
			owners[node.Rel] = node.Path
		}
		n++
	}
	return n, nil
}

// pathSet holds cleaned paths. A nil pathSet is empty.
type pathSet map[string]struct{}

func newPathSet(paths []string) pathSet {
	if len(paths) == 0 {
		return nil
	}
	s := make(pathSet, len(paths))
	for _, p := range paths {
		s[filepath.Clean(p)] = struct{}{}
	}
	return s
}

func (s pathSet) has(p string) bool {
	_, ok := s[filepath.Clean(p)]
	return ok
}

func walkDir(fsys afero.Fs, dir, rel string, info fs.FileInfo, skip pathSet, yield func(Node, error) bool) bool {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		yield(Node{}, errors.IOErrorf(err, "reading directory %s", dir))
		return false
	}
	if skip != nil {
		entries = slices.DeleteFunc(entries, func(e os.FileInfo) bool {
			return skip.has(filepath.Join(dir, e.Name()))
		})
	}

	node := Node{
		Kind:    Dir,
		Path:    dir,
		Rel:     rel,
		Mode:    info.Mode().Perm(),
		ModTime: info.ModTime(),
		Empty:   len(entries) == 0,
	}
	if !yield(node, nil) {
		return false
	}

	var subdirs []os.FileInfo
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if e.IsDir() {
			subdirs = append(subdirs, e)
			continue
		}

		fi := e
		if e.Mode()&fs.ModeSymlink != 0 {
			// Follow links to files; linked directories are not traversed.
			target, err := fsys.Stat(p)
			if err != nil || !target.Mode().IsRegular() {
				continue
			}
			fi = target
		} else if !e.Mode().IsRegular() {
			continue
		}

		if !yield(fileNode(p, path.Join(rel, e.Name()), fi), nil) {
			return false
		}
	}

	for _, sub := range subdirs {
		if !walkDir(fsys, filepath.Join(dir, sub.Name()), path.Join(rel, sub.Name()), sub, skip, yield) {
			return false
		}
	}
	return true
}

func fileNode(p, rel string, info fs.FileInfo) Node {
	return Node{
		Kind:    File,
		Path:    p,
		Rel:     rel,
		Size:    info.Size(),
		Mode:    info.Mode().Perm(),
		ModTime: info.ModTime(),
	}
}
