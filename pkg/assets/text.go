package assets

import (
	"github.com/cockroachdb/errors"

	"github.com/richardartoul/assetcache/pkg/asset"
	"github.com/richardartoul/assetcache/pkg/kvstore"
)

// KindText identifies text assets.
const KindText = "text"

// textKeyPrefix namespaces text payloads in the key/value store.
const textKeyPrefix = "_AssetCache_Text_"

// Text is a string payload kept in the key/value store next to the index.
type Text struct {
	asset.Base[string]
}

var _ asset.Loadable[string] = (*Text)(nil)

type textBacking struct {
	store kvstore.Store
}

func textStoreKey(key string) string {
	return textKeyPrefix + key
}

func (b textBacking) Read(key string) (string, error) {
	value, ok, err := b.store.GetString(textStoreKey(key))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Wrapf(asset.ErrNotFound, "text %s", key)
	}
	return value, nil
}

func (b textBacking) Write(key, value string) error {
	if err := b.store.SetString(textStoreKey(key), value); err != nil {
		return err
	}
	return b.store.Flush()
}

func (b textBacking) Release(string) error {
	return nil
}

func (b textBacking) Delete(key string) error {
	if _, ok, err := b.store.GetString(textStoreKey(key)); err != nil {
		return err
	} else if !ok {
		return errors.Wrapf(asset.ErrNotFound, "text %s", key)
	}
	if err := b.store.Delete(textStoreKey(key)); err != nil {
		return err
	}
	return b.store.Flush()
}

// NewText caches text for url.
func NewText(store kvstore.Store, url, text string, lifetimeDays int, opts ...asset.Option) (*Text, error) {
	t := &Text{}
	if err := t.Init(KindText, url, text, lifetimeDays, newTextBacking(store), opts...); err != nil {
		return nil, err
	}
	return t, nil
}

// TextDeserializer restores text assets whose payload lives in store.
func TextDeserializer(store kvstore.Store, opts ...asset.Option) asset.Deserializer {
	return asset.KindDeserializer(KindText, func(meta asset.Metadata) (asset.Asset, error) {
		t := &Text{}
		if err := t.Restore(meta, newTextBacking(store), opts...); err != nil {
			return nil, err
		}
		return t, nil
	})
}

func newTextBacking(store kvstore.Store) asset.Backing[string] {
	if store == nil {
		return nil
	}
	return textBacking{store: store}
}
