// Package fileutil provides file system utilities including atomic write operations.
package fileutil

import (
	"bytes"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/keepsafe/internal/errors"
)

// DefaultPerm is used by the helpers that take no explicit permissions.
// Settings may name private paths, so files are owner-only.
const DefaultPerm os.FileMode = 0o600

// AtomicWriteFile writes data to a file atomically using a temp file + rename pattern.
// Interrupted writes leave the original file intact, and watchers of the
// directory observe a single create event for path.
//
// The caller is responsible for ensuring the parent directory exists.
// Permissions are applied to the final file via the perm parameter.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	// Same directory as the target so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(dir, ".keepsafe-atomic-*.tmp")
	if err != nil {
		return errors.IOError(err, "creating temp file")
	}

	tmpName := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.IOError(err, "writing temp file")
	}

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return errors.IOError(err, "setting file permissions")
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.IOError(err, "syncing temp file")
	}

	if err := tmp.Close(); err != nil {
		return errors.IOError(err, "closing temp file")
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.IOError(err, "renaming temp file")
	}
	renamed = true

	return nil
}

// AtomicWriteYAMLWithPerm writes v as YAML with two-space indentation to
// path atomically with the given permissions.
//
// The caller is responsible for ensuring the parent directory exists.
func AtomicWriteYAMLWithPerm(path string, v any, perm os.FileMode) (err error) {
	// yaml.v3 panics on unmarshalable types such as channels and funcs.
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("marshaling YAML: %v", r)
		}
	}()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "marshaling YAML")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "marshaling YAML")
	}

	return AtomicWriteFile(path, buf.Bytes(), perm)
}

// AtomicWriteYAML writes v as YAML to path atomically with [DefaultPerm].
//
// The caller is responsible for ensuring the parent directory exists.
func AtomicWriteYAML(path string, v any) error {
	return AtomicWriteYAMLWithPerm(path, v, DefaultPerm)
}
