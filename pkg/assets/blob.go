package assets

import (
	"github.com/richardartoul/assetcache/backends"
	"github.com/richardartoul/assetcache/pkg/asset"
)

const (
	// KindBlob identifies raw byte assets.
	KindBlob = "blob"

	blobFolder = "Blobs"
	blobExt    = ".bin"
)

// Blob is an opaque byte payload stored as is in a blob backend.
type Blob struct {
	asset.Base[[]byte]
}

var _ asset.Loadable[[]byte] = (*Blob)(nil)

type blobBacking struct {
	blobs backends.Backend
}

func (b blobBacking) Read(key string) ([]byte, error) {
	return b.blobs.Read(backends.BlobPath(blobFolder, key, blobExt))
}

func (b blobBacking) Write(key string, data []byte) error {
	return b.blobs.Write(backends.BlobPath(blobFolder, key, blobExt), data)
}

func (b blobBacking) Release([]byte) error {
	return nil
}

func (b blobBacking) Delete(key string) error {
	return b.blobs.Delete(backends.BlobPath(blobFolder, key, blobExt))
}

// NewBlob caches data for url.
func NewBlob(blobs backends.Backend, url string, data []byte, lifetimeDays int, opts ...asset.Option) (*Blob, error) {
	b := &Blob{}
	if err := b.Init(KindBlob, url, data, lifetimeDays, newBlobBacking(blobs), opts...); err != nil {
		return nil, err
	}
	return b, nil
}

// BlobDeserializer restores blob assets stored in blobs.
func BlobDeserializer(blobs backends.Backend, opts ...asset.Option) asset.Deserializer {
	return asset.KindDeserializer(KindBlob, func(meta asset.Metadata) (asset.Asset, error) {
		b := &Blob{}
		if err := b.Restore(meta, newBlobBacking(blobs), opts...); err != nil {
			return nil, err
		}
		return b, nil
	})
}

func newBlobBacking(blobs backends.Backend) asset.Backing[[]byte] {
	if blobs == nil {
		return nil
	}
	return blobBacking{blobs: blobs}
}
