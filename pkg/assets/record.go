package assets

import (
	"path"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/richardartoul/assetcache/backends"
	"github.com/richardartoul/assetcache/pkg/asset"
)

const (
	recordFolder = "Records"
	recordExt    = ".msgpack"
)

// Record is a caller-defined value encoded with msgpack. Each Go type gets its
// own kind, and its deserializer must be registered with the cache registry
// before reload.
type Record[T any] struct {
	asset.Base[T]
}

type recordBacking[T any] struct {
	blobs  backends.Backend
	folder string
}

func (b recordBacking[T]) path(key string) string {
	return backends.BlobPath(b.folder, key, recordExt)
}

func (b recordBacking[T]) Read(key string) (T, error) {
	var value T
	data, err := b.blobs.Read(b.path(key))
	if err != nil {
		return value, err
	}
	if err := msgpack.Unmarshal(data, &value); err != nil {
		return value, errors.Wrapf(err, "decode record %s", key)
	}
	return value, nil
}

func (b recordBacking[T]) Write(key string, value T) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode record %s", key)
	}
	return b.blobs.Write(b.path(key), data)
}

func (b recordBacking[T]) Release(T) error {
	return nil
}

func (b recordBacking[T]) Delete(key string) error {
	return b.blobs.Delete(b.path(key))
}

func newRecordBacking[T any](blobs backends.Backend, kind string) asset.Backing[T] {
	if blobs == nil {
		return nil
	}
	return recordBacking[T]{blobs: blobs, folder: path.Join(recordFolder, kind)}
}

func validKind(kind string) error {
	switch kind {
	case "":
		return errors.New("record kind is empty")
	case KindText, KindImage, KindBlob:
		return errors.Newf("record kind %q is reserved", kind)
	}
	if path.Base(kind) != kind || kind == "." || kind == ".." {
		return errors.Newf("record kind %q must be a single path element", kind)
	}
	return nil
}

// NewRecord caches value for url under kind.
func NewRecord[T any](blobs backends.Backend, kind, url string, value T, lifetimeDays int, opts ...asset.Option) (*Record[T], error) {
	if err := validKind(kind); err != nil {
		return nil, errors.Mark(err, asset.ErrConstruction)
	}
	r := &Record[T]{}
	if err := r.Init(kind, url, value, lifetimeDays, newRecordBacking[T](blobs, kind), opts...); err != nil {
		return nil, err
	}
	return r, nil
}

// RecordDeserializer restores records of kind stored in blobs.
func RecordDeserializer[T any](blobs backends.Backend, kind string, opts ...asset.Option) asset.Deserializer {
	return asset.KindDeserializer(kind, func(meta asset.Metadata) (asset.Asset, error) {
		r := &Record[T]{}
		if err := r.Restore(meta, newRecordBacking[T](blobs, kind), opts...); err != nil {
			return nil, err
		}
		return r, nil
	})
}
