// Package assets provides the built-in asset kinds: text kept in the
// key/value store, and images, blobs and msgpack records kept in a blob
// backend.
package assets

import (
	"image"

	"github.com/cockroachdb/errors"

	"github.com/richardartoul/assetcache/backends"
	"github.com/richardartoul/assetcache/pkg/asset"
	"github.com/richardartoul/assetcache/pkg/assetcache"
	"github.com/richardartoul/assetcache/pkg/kvstore"
)

// Factory bundles the stores the built-in kinds persist to.
type Factory struct {
	// Store holds text payloads. It is usually the store the index is
	// persisted to.
	Store kvstore.Store
	// Blobs holds image, blob and record payloads.
	Blobs backends.Backend
	// Clock overrides the system clock.
	Clock asset.Clock
}

// Options returns the asset options derived from the factory, for use with
// NewRecord and RecordDeserializer.
func (f *Factory) Options() []asset.Option {
	if f.Clock == nil {
		return nil
	}
	return []asset.Option{asset.WithClock(f.Clock)}
}

// Deserializers returns the deserializers of the built-in kinds whose store
// is configured.
func (f *Factory) Deserializers() []asset.Deserializer {
	var ds []asset.Deserializer
	if f.Store != nil {
		ds = append(ds, TextDeserializer(f.Store, f.Options()...))
	}
	if f.Blobs != nil {
		ds = append(ds,
			ImageDeserializer(f.Blobs, f.Options()...),
			BlobDeserializer(f.Blobs, f.Options()...))
	}
	return ds
}

// Registry returns a registry whose built-ins are f's deserializers.
func (f *Factory) Registry() *asset.Registry {
	return asset.NewRegistry(f.Deserializers()...)
}

func (f *Factory) NewText(url, text string, lifetimeDays int) (*Text, error) {
	return NewText(f.Store, url, text, lifetimeDays, f.Options()...)
}

func (f *Factory) NewImage(url string, img image.Image, lifetimeDays int) (*Image, error) {
	return NewImage(f.Blobs, url, img, lifetimeDays, f.Options()...)
}

func (f *Factory) NewBlob(url string, data []byte, lifetimeDays int) (*Blob, error) {
	return NewBlob(f.Blobs, url, data, lifetimeDays, f.Options()...)
}

// SaveText caches text for url and indexes it. A url that is already cached
// is refused before anything is written, so the cached payload is never
// overwritten behind the index's back.
func (f *Factory) SaveText(c *assetcache.Cache, url, text string, lifetimeDays int, persist bool) (*Text, error) {
	return insertNew(c, url, persist, func() (*Text, error) {
		return f.NewText(url, text, lifetimeDays)
	})
}

// SaveImage caches img for url and indexes it.
func (f *Factory) SaveImage(c *assetcache.Cache, url string, img image.Image, lifetimeDays int, persist bool) (*Image, error) {
	return insertNew(c, url, persist, func() (*Image, error) {
		return f.NewImage(url, img, lifetimeDays)
	})
}

// SaveBlob caches data for url and indexes it.
func (f *Factory) SaveBlob(c *assetcache.Cache, url string, data []byte, lifetimeDays int, persist bool) (*Blob, error) {
	return insertNew(c, url, persist, func() (*Blob, error) {
		return f.NewBlob(url, data, lifetimeDays)
	})
}

// SaveRecord caches value for url under kind and indexes it.
func SaveRecord[T any](f *Factory, c *assetcache.Cache, kind, url string, value T, lifetimeDays int, persist bool) (*Record[T], error) {
	return insertNew(c, url, persist, func() (*Record[T], error) {
		return NewRecord(f.Blobs, kind, url, value, lifetimeDays, f.Options()...)
	})
}

// LoadText returns the text cached for url.
func LoadText(c *assetcache.Cache, url string, refresh bool) (string, error) {
	return assetcache.LoadValue[string](c, url, refresh)
}

// LoadImage returns the image cached for url.
func LoadImage(c *assetcache.Cache, url string, refresh bool) (image.Image, error) {
	return assetcache.LoadValue[image.Image](c, url, refresh)
}

// LoadBlob returns the bytes cached for url.
func LoadBlob(c *assetcache.Cache, url string, refresh bool) ([]byte, error) {
	return assetcache.LoadValue[[]byte](c, url, refresh)
}

func insertNew[A asset.Asset](c *assetcache.Cache, url string, persist bool, create func() (A, error)) (A, error) {
	var zero A
	if c.Has(url) {
		return zero, errors.Wrapf(asset.ErrDuplicateKey, "%s is already cached", url)
	}
	a, err := create()
	if err != nil {
		return zero, err
	}
	// A failed persist leaves the asset indexed, so hand it back with the error.
	if err := c.Insert(a, persist); err != nil {
		return a, err
	}
	return a, nil
}
