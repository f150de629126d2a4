package backends

import (
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
)

// FS stores blobs as files on a billy filesystem.
type FS struct {
	fs     billy.Filesystem
	logger *slog.Logger
}

var _ Backend = (*FS)(nil)

// NewFS creates a backend on an existing billy filesystem.
func NewFS(fs billy.Filesystem, logger *slog.Logger) *FS {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FS{fs: fs, logger: logger}
}

// NewLocal creates a backend rooted at dir on the local disk.
func NewLocal(dir string, logger *slog.Logger) (*FS, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create cache directory")
	}
	return NewFS(osfs.New(dir), logger), nil
}

// NewMemory creates a backend held in memory.
func NewMemory() *FS {
	return NewFS(memfs.New(), nil)
}

func (b *FS) Read(p string) ([]byte, error) {
	f, err := b.fs.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notExist(err, p)
		}
		return nil, errors.Wrapf(err, "failed to open %s", p)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", p)
	}
	return data, nil
}

// Write atomically writes data to p.
func (b *FS) Write(p string, data []byte) error {
	if err := b.fs.MkdirAll(path.Dir(p), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", p)
	}

	// Write to temp file first for atomic operation.
	tmpPath := p + ".tmp"
	tmpFile, err := b.fs.Create(tmpPath)
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}

	_, err = tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if err != nil {
		b.fs.Remove(tmpPath)
		return errors.Wrap(err, "failed to write to temp file")
	}
	if closeErr != nil {
		b.fs.Remove(tmpPath)
		return errors.Wrap(closeErr, "failed to close temp file")
	}

	// Then atomically rename the temp file to the final destination so a
	// partial blob is never observed.
	if err := b.fs.Rename(tmpPath, p); err != nil {
		b.fs.Remove(tmpPath)
		return errors.Wrap(err, "failed to rename blob file")
	}
	return nil
}

func (b *FS) Delete(p string) error {
	if _, err := b.fs.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notExist(err, p)
		}
		return errors.Wrapf(err, "failed to stat %s", p)
	}
	if err := b.fs.Remove(p); err != nil {
		b.logger.Warn("failed to remove blob", "path", p, "error", err)
		return errors.Wrapf(err, "failed to remove %s", p)
	}
	return nil
}
