package asset

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/richardartoul/assetcache/pkg/keyderive"
)

// Backing is what a payload kind supplies to Base: how its payload is read
// from, written to, freed and deleted from wherever that kind keeps it.
type Backing[T any] interface {
	Read(key string) (T, error)
	Write(key string, payload T) error
	Release(payload T) error
	Delete(key string) error
}

// Option configures a Base.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock sets the clock used for refresh and expiration checks.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// Base implements the lifecycle shared by all asset kinds. Concrete kinds
// embed it and call Init or Restore from their constructors.
//
// A Base must not be copied after Init or Restore.
type Base[T any] struct {
	meta      Metadata
	backing   Backing[T]
	clock     Clock
	payload   T
	loaded    bool
	onRemoved func()
}

func (b *Base[T]) setup(backing Backing[T], opts []Option) {
	o := options{clock: SystemClock}
	for _, opt := range opts {
		opt(&o)
	}
	b.backing = backing
	b.clock = o.clock
}

// Init creates a new asset: it derives the key, starts the lifetime and
// saves the payload. If the save fails the asset is unusable and the error
// is marked ErrConstruction.
func (b *Base[T]) Init(kind, url string, payload T, lifetimeDays int, backing Backing[T], opts ...Option) error {
	if backing == nil {
		return errors.Wrapf(ErrConstruction, "%s asset %q has no backing", kind, url)
	}
	b.setup(backing, opts)
	b.meta = Metadata{
		Kind: kind,
		URL:  url,
		Key:  keyderive.Derive(url),
	}
	b.RefreshExpiration(lifetimeDays)

	if err := b.Save(payload); err != nil {
		return errors.Mark(errors.Wrap(err, "initial save failed"), ErrConstruction)
	}
	return nil
}

// Restore rebuilds an asset from persisted metadata. The payload stays in the
// backing store until Load is called.
func (b *Base[T]) Restore(meta Metadata, backing Backing[T], opts ...Option) error {
	if backing == nil {
		return errors.Wrapf(ErrInvalidDescriptor, "%s asset %q has no backing", meta.Kind, meta.URL)
	}
	if meta.Kind == "" || meta.Key == "" {
		return errors.Wrapf(ErrInvalidDescriptor, "metadata for %q is missing kind or key", meta.URL)
	}
	b.setup(backing, opts)
	b.meta = meta
	return nil
}

func (b *Base[T]) Kind() string { return b.meta.Kind }
func (b *Base[T]) URL() string { return b.meta.URL }
func (b *Base[T]) Key() string { return b.meta.Key }
func (b *Base[T]) RefreshedAt() time.Time { return b.meta.RefreshedAt }
func (b *Base[T]) ExpiresAt() time.Time { return b.meta.ExpiresAt }
func (b *Base[T]) LifetimeDays() int { return b.meta.LifetimeDays }
func (b *Base[T]) IsLoaded() bool { return b.loaded }

// Metadata returns a copy of the persisted fields.
func (b *Base[T]) Metadata() Metadata {
	return b.meta
}

// IsExpired reports whether now is at or past the expiration.
func (b *Base[T]) IsExpired() bool {
	return !b.clock().Before(b.meta.ExpiresAt)
}

// RefreshExpiration restarts the lifetime from now. The expiration is always
// derived from the refresh time and the lifetime, never set directly.
func (b *Base[T]) RefreshExpiration(overrideLifetimeDays ...int) {
	b.meta.RefreshedAt = b.clock().UTC()
	if len(overrideLifetimeDays) > 0 {
		b.meta.LifetimeDays = overrideLifetimeDays[0]
	}
	b.meta.ExpiresAt = ExpirationFor(b.meta.RefreshedAt, b.meta.LifetimeDays)
}

// Load returns the payload, reading it from the backing store only when it is
// not already in memory.
func (b *Base[T]) Load() (T, error) {
	if b.loaded {
		return b.payload, nil
	}
	payload, err := b.backing.Read(b.meta.Key)
	if err != nil {
		var zero T
		return zero, b.backingError(err, "load")
	}
	b.payload = payload
	b.loaded = true
	return payload, nil
}

// Save writes the payload to the backing store and keeps it in memory once
// the write succeeded.
func (b *Base[T]) Save(payload T) error {
	if err := b.backing.Write(b.meta.Key, payload); err != nil {
		return b.backingError(err, "save")
	}
	b.payload = payload
	b.loaded = true
	return nil
}

// Release frees the in-memory payload. Releasing an unloaded asset is a no-op.
func (b *Base[T]) Release() error {
	if !b.loaded {
		return nil
	}
	if err := b.backing.Release(b.payload); err != nil {
		return b.backingError(err, "release")
	}
	b.clear()
	return nil
}

// Remove deletes the payload from the backing store. Only a confirmed delete
// clears memory and notifies the removal handler, which fires at most once.
func (b *Base[T]) Remove() error {
	if err := b.backing.Delete(b.meta.Key); err != nil {
		return b.backingError(err, "remove")
	}
	b.clear()
	if fn := b.onRemoved; fn != nil {
		b.onRemoved = nil
		fn()
	}
	return nil
}

// SetRemovedHandler installs fn as the removal subscriber, replacing any
// previous one. A nil fn unsubscribes.
func (b *Base[T]) SetRemovedHandler(fn func()) {
	b.onRemoved = fn
}

// MarshalMetadata returns the metadata JSON stored in the cache index.
func (b *Base[T]) MarshalMetadata() ([]byte, error) {
	data, err := json.Marshal(b.meta)
	if err != nil {
		return nil, errors.Wrapf(err, "encode metadata of %s", b.meta.Key)
	}
	return data, nil
}

func (b *Base[T]) clear() {
	var zero T
	b.payload = zero
	b.loaded = false
}

func (b *Base[T]) backingError(err error, op string) error {
	return errors.Mark(errors.Wrapf(err, "%s %s asset %s", op, b.meta.Kind, b.meta.Key), ErrBacking)
}
