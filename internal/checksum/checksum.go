// Package checksum computes the content digests recorded in backup manifests.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"

	"github.com/spf13/afero"

	"github.com/thoreinstein/keepsafe/internal/errors"
)

// Size is the length of a hex-encoded digest.
const Size = sha256.Size * 2

// New returns a fresh hash for callers that digest while copying.
func New() hash.Hash {
	return sha256.New()
}

// Sum formats the digest accumulated in h.
func Sum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// Reader computes the SHA256 hex digest of everything read from r.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", errors.IOError(err, "reading content")
	}
	return Sum(h), nil
}

// File computes the SHA256 hex digest of the file at path on fsys.
func File(fsys afero.Fs, path string) (string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", errors.IOError(err, "opening file")
	}
	defer f.Close()

	return Reader(f)
}

// Valid reports whether s looks like a digest produced by this package.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	for i := range len(s) {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
