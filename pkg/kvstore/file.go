package kvstore

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/richardartoul/assetcache/pkg/locking"
)

// fileData is the on-disk layout of a File store.
type fileData struct {
	Ints    map[string]int    `json:"ints"`
	Strings map[string]string `json:"strings"`
}

// File is a Store held in memory and written to a single JSON file on Flush.
// Flush writes to a temporary file and renames it over the previous one, so a
// crash leaves either the old or the new contents, never a partial file.
type File struct {
	fs     billy.Filesystem
	name   string
	data   fileData
	lock   *locking.FileLock
	logger *slog.Logger
}

var _ Store = (*File)(nil)

// OpenFile opens the store file name inside dir on the local disk. The
// directory is locked for the lifetime of the store, so a second OpenFile on
// the same directory fails with locking.ErrLocked until Close.
func OpenFile(dir, name string, logger *slog.Logger) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create store directory")
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get absolute path")
	}

	lock, err := locking.LockFile(filepath.Join(absDir, name+".lock"))
	if err != nil {
		return nil, err
	}

	store, err := NewFile(osfs.New(absDir), name, logger)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	store.lock = lock
	return store, nil
}

// NewFile opens the store file name on fs. It does not take a lock.
func NewFile(fs billy.Filesystem, name string, logger *slog.Logger) (*File, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	f := &File{
		fs:     fs,
		name:   name,
		logger: logger,
		data: fileData{
			Ints:    make(map[string]int),
			Strings: make(map[string]string),
		},
	}
	if err := f.read(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) read() error {
	file, err := f.fs.Open(f.name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "failed to open %s", f.name)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", f.name)
	}
	if len(raw) == 0 {
		return nil
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return errors.Wrapf(err, "failed to decode %s", f.name)
	}
	if data.Ints != nil {
		f.data.Ints = data.Ints
	}
	if data.Strings != nil {
		f.data.Strings = data.Strings
	}
	return nil
}

func (f *File) GetInt(key string) (int, bool, error) {
	if v, ok := f.data.Ints[key]; ok {
		return v, true, nil
	}
	if _, ok := f.data.Strings[key]; ok {
		return 0, false, errors.Wrapf(ErrWrongType, "key %s holds a string", key)
	}
	return 0, false, nil
}

func (f *File) SetInt(key string, value int) error {
	delete(f.data.Strings, key)
	f.data.Ints[key] = value
	return nil
}

func (f *File) GetString(key string) (string, bool, error) {
	v, ok := f.data.Strings[key]
	return v, ok, nil
}

func (f *File) SetString(key string, value string) error {
	delete(f.data.Ints, key)
	f.data.Strings[key] = value
	return nil
}

func (f *File) Delete(key string) error {
	delete(f.data.Ints, key)
	delete(f.data.Strings, key)
	return nil
}

// Flush atomically replaces the store file with the current contents.
func (f *File) Flush() error {
	content, err := json.Marshal(f.data)
	if err != nil {
		return errors.Wrap(err, "failed to encode store")
	}

	tmpPath := f.name + ".tmp"
	if err := util.WriteFile(f.fs, tmpPath, content, 0644); err != nil {
		return errors.Wrap(err, "failed to write temp store file")
	}
	if err := f.fs.Rename(tmpPath, f.name); err != nil {
		f.fs.Remove(tmpPath)
		return errors.Wrap(err, "failed to rename store file")
	}

	f.logger.Debug("flushed key/value store",
		"file", f.name,
		"ints", len(f.data.Ints),
		"strings", len(f.data.Strings))
	return nil
}

// Close releases the directory lock, if any. It does not flush.
func (f *File) Close() error {
	if f.lock == nil {
		return nil
	}
	err := f.lock.Unlock()
	f.lock = nil
	return err
}
