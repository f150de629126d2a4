package locking

import (
	"github.com/cockroachdb/errors"
	"github.com/gofrs/flock"
)

// ErrLocked is returned when another owner already holds a file lock.
var ErrLocked = errors.New("lock is held by another owner")

// FileLock is an exclusive advisory lock on a file. Stores that persist to a
// directory take one so a single owner drives them at a time.
type FileLock struct {
	flock *flock.Flock
}

// LockFile acquires an exclusive lock on path without blocking. The file is
// created if it does not exist.
func LockFile(path string) (*FileLock, error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to lock %s", path)
	}
	if !locked {
		return nil, errors.Wrapf(ErrLocked, "%s", path)
	}
	return &FileLock{flock: fl}, nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.flock.Path()
}

// Unlock releases the lock. Unlocking twice is safe.
func (l *FileLock) Unlock() error {
	if err := l.flock.Unlock(); err != nil {
		return errors.Wrapf(err, "failed to unlock %s", l.flock.Path())
	}
	return nil
}
