package backends

import (
	"path"

	"github.com/cockroachdb/errors"
)

// ErrNotExist is returned (wrapped) when a blob is missing.
var ErrNotExist = errors.New("blob does not exist")

// Backend defines the interface for blob storage backends.
// Implementations can be swapped to use different storage mechanisms.
type Backend interface {
	// Read returns the bytes stored at path.
	Read(path string) ([]byte, error)

	// Write stores data at path, replacing any previous contents.
	Write(path string, data []byte) error

	// Delete removes the blob at path. Deleting a missing blob fails with
	// ErrNotExist.
	Delete(path string) error
}

// BlobPath returns the path of a payload: <folder>/<key><ext>.
func BlobPath(folder, key, ext string) string {
	return path.Join(folder, key+ext)
}

func notExist(err error, p string) error {
	return errors.Mark(errors.Wrapf(err, "blob %s", p), ErrNotExist)
}
