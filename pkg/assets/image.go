package assets

import (
	"bytes"
	"image"
	"image/png"

	"github.com/cockroachdb/errors"

	"github.com/richardartoul/assetcache/backends"
	"github.com/richardartoul/assetcache/pkg/asset"
)

const (
	// KindImage identifies image assets.
	KindImage = "image"

	imageFolder = "Images"
	imageExt    = ".png"
)

// Image is a decoded image stored as PNG in a blob backend.
type Image struct {
	asset.Base[image.Image]
}

var _ asset.Loadable[image.Image] = (*Image)(nil)

type imageBacking struct {
	blobs backends.Backend
}

func (b imageBacking) Read(key string) (image.Image, error) {
	data, err := b.blobs.Read(backends.BlobPath(imageFolder, key, imageExt))
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "decode image %s", key)
	}
	return img, nil
}

func (b imageBacking) Write(key string, img image.Image) error {
	if img == nil {
		return errors.Newf("image %s is nil", key)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return errors.Wrapf(err, "encode image %s", key)
	}
	return b.blobs.Write(backends.BlobPath(imageFolder, key, imageExt), buf.Bytes())
}

func (b imageBacking) Release(image.Image) error {
	return nil
}

func (b imageBacking) Delete(key string) error {
	return b.blobs.Delete(backends.BlobPath(imageFolder, key, imageExt))
}

// NewImage caches img for url.
func NewImage(blobs backends.Backend, url string, img image.Image, lifetimeDays int, opts ...asset.Option) (*Image, error) {
	i := &Image{}
	if err := i.Init(KindImage, url, img, lifetimeDays, newImageBacking(blobs), opts...); err != nil {
		return nil, err
	}
	return i, nil
}

// ImageDeserializer restores image assets stored in blobs.
func ImageDeserializer(blobs backends.Backend, opts ...asset.Option) asset.Deserializer {
	return asset.KindDeserializer(KindImage, func(meta asset.Metadata) (asset.Asset, error) {
		i := &Image{}
		if err := i.Restore(meta, newImageBacking(blobs), opts...); err != nil {
			return nil, err
		}
		return i, nil
	})
}

func newImageBacking(blobs backends.Backend) asset.Backing[image.Image] {
	if blobs == nil {
		return nil
	}
	return imageBacking{blobs: blobs}
}
