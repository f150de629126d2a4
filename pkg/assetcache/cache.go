// Package assetcache indexes cached assets by key and persists the index to a
// key/value text store so it survives restarts.
//
// A Cache is owned by one goroutine. It takes no locks; callers sharing one
// across goroutines wrap it in a Serialized.
package assetcache

import (
	"log/slog"
	"slices"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/richardartoul/assetcache/pkg/asset"
	"github.com/richardartoul/assetcache/pkg/keyderive"
	"github.com/richardartoul/assetcache/pkg/kvstore"
	"github.com/richardartoul/assetcache/pkg/metrics"
)

// DefaultPrefix namespaces the persisted index slots.
const DefaultPrefix = "_AssetCache_CachedAssets"

// Option configures a Cache.
type Option func(*Cache)

// WithPrefix sets the prefix of the persisted slot keys.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithLogger sets the diagnostics sink.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLatencyTracker records the latency of index operations.
func WithLatencyTracker(tracker *metrics.LatencyTracker) Option {
	return func(c *Cache) {
		c.latency = tracker
	}
}

// Cache is the in-memory index of cached assets. The map and the ordered
// slice always hold the same set of assets.
type Cache struct {
	store    kvstore.Store
	registry *asset.Registry
	logger   *slog.Logger
	latency  *metrics.LatencyTracker
	prefix   string

	entries map[string]asset.Asset
	ordered []asset.Asset

	removedOnOpen int
}

// New creates a cache over store, restores the persisted index and evicts
// whatever expired while the process was down.
func New(store kvstore.Store, registry *asset.Registry, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, errors.New("assetcache: nil store")
	}
	if registry == nil {
		registry = asset.NewRegistry()
	}
	c := &Cache{
		store:    store,
		registry: registry,
		logger:   slog.Default(),
		prefix:   DefaultPrefix,
		entries:  make(map[string]asset.Asset),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.Reload(); err != nil {
		return nil, err
	}
	if n := c.RemoveExpired(); n > 0 {
		c.logger.Info("Removed expired assets", "count", n)
		c.removedOnOpen = n
	}
	return c, nil
}

// RemovedOnOpen returns how many expired assets New removed.
func (c *Cache) RemovedOnOpen() int {
	return c.removedOnOpen
}

func (c *Cache) countKey() string {
	return c.prefix + "_Count_"
}

func (c *Cache) slotKey(i int) string {
	return c.prefix + "_Asset_" + strconv.Itoa(i)
}

// Get returns the asset indexed under the key of url.
func (c *Cache) Get(url string) (asset.Asset, bool) {
	a, ok := c.entries[keyderive.Derive(url)]
	return a, ok
}

// Has reports whether an asset is indexed under the key of url.
func (c *Cache) Has(url string) bool {
	_, ok := c.Get(url)
	return ok
}

// Len returns the number of indexed assets.
func (c *Cache) Len() int {
	return len(c.ordered)
}

// Assets returns the indexed assets in insertion order.
func (c *Cache) Assets() []asset.Asset {
	return slices.Clone(c.ordered)
}

// Insert indexes a and subscribes to its removal. With persistNow the index
// is written out before returning; a persist failure is returned but a stays
// indexed.
func (c *Cache) Insert(a asset.Asset, persistNow bool) error {
	if a == nil {
		return errors.New("cannot insert a nil asset")
	}
	key := a.Key()
	if _, ok := c.entries[key]; ok {
		return errors.Wrapf(asset.ErrDuplicateKey, "an asset with key %s is already cached", key)
	}

	c.entries[key] = a
	c.ordered = append(c.ordered, a)
	a.SetRemovedHandler(func() { c.onRemoved(a) })

	if persistNow {
		return c.Persist()
	}
	return nil
}

// RemoveByURL releases and removes the asset indexed under the key of url.
// On failure the asset stays indexed.
func (c *Cache) RemoveByURL(url string) error {
	key := keyderive.Derive(url)
	a, ok := c.entries[key]
	if !ok {
		return errors.Wrapf(asset.ErrNotFound, "no asset with key %s", key)
	}
	return c.remove(a)
}

func (c *Cache) remove(a asset.Asset) error {
	return c.latency.RecordFunc(metrics.OpRemove, func() error {
		if err := a.Release(); err != nil {
			return err
		}
		return a.Remove()
	})
}

// RemoveAll removes every asset for which pred holds, or every asset when
// pred is nil. It walks the index newest first so removals never disturb the
// entries still to visit. Failures are logged and skipped. It returns the
// number of assets removed.
func (c *Cache) RemoveAll(pred func(asset.Asset) bool) int {
	removed := 0
	_ = c.latency.RecordFunc(metrics.OpSweep, func() error {
		for i := len(c.ordered) - 1; i >= 0; i-- {
			a := c.ordered[i]
			if pred != nil && !pred(a) {
				continue
			}
			if err := c.remove(a); err != nil {
				c.logger.Warn("Failed to remove asset",
					"key", a.Key(),
					"url", a.URL(),
					"error", err)
				continue
			}
			removed++
		}
		return nil
	})
	return removed
}

// RemoveExpired removes every expired asset.
func (c *Cache) RemoveExpired() int {
	return c.RemoveAll(asset.IsExpired)
}

// onRemoved is the only path by which an asset leaves the index.
func (c *Cache) onRemoved(a asset.Asset) {
	a.SetRemovedHandler(nil)
	c.erase(a)
	if err := c.Persist(); err != nil {
		c.logger.Error("Failed to persist index after removal",
			"key", a.Key(),
			"error", err)
	}
}

func (c *Cache) erase(a asset.Asset) {
	if cur, ok := c.entries[a.Key()]; ok && cur == a {
		delete(c.entries, a.Key())
	}
	if i := slices.IndexFunc(c.ordered, func(x asset.Asset) bool { return x == a }); i >= 0 {
		c.ordered = slices.Delete(c.ordered, i, i+1)
	}
}

// Persist rewrites the whole index: the previous run of slots is deleted and
// every asset is written to a contiguous run in insertion order. Assets that
// fail to encode or store are logged and left out. Only failures on the count
// or the flush are returned.
func (c *Cache) Persist() error {
	return c.latency.RecordFunc(metrics.OpPersist, c.persist)
}

func (c *Cache) persist() error {
	countKey := c.countKey()

	previous, _, err := c.store.GetInt(countKey)
	if err != nil {
		c.logger.Warn("Failed to read previous asset count, stale slots may remain",
			"key", countKey,
			"error", err)
		previous = 0
	}
	for i := 0; i < previous; i++ {
		if err := c.store.Delete(c.slotKey(i)); err != nil {
			return errors.Wrapf(err, "delete slot %d", i)
		}
	}
	if err := c.store.Delete(countKey); err != nil {
		return errors.Wrap(err, "delete asset count")
	}

	written := 0
	for _, a := range c.ordered {
		slot := c.slotKey(written)
		encoded, err := encode(a)
		if err != nil {
			c.logger.Error("Asset failed to serialize, it will not be persisted",
				"key", a.Key(),
				"error", err)
			continue
		}
		if err := c.store.SetString(slot, encoded); err != nil {
			c.logger.Error("Failed to store asset descriptor",
				"slot", slot,
				"key", a.Key(),
				"error", err)
			continue
		}
		written++
	}

	if err := c.store.SetInt(countKey, written); err != nil {
		return errors.Wrap(err, "store asset count")
	}
	if err := c.store.Flush(); err != nil {
		return errors.Wrap(err, "flush store")
	}
	return nil
}

func encode(a asset.Asset) (string, error) {
	d, err := asset.NewDescriptor(a)
	if err != nil {
		return "", err
	}
	return d.Encode()
}

// Reload discards the in-memory index and rebuilds it from the store. Slots
// that cannot be restored are logged and skipped. It fails only when the
// asset count cannot be read.
func (c *Cache) Reload() error {
	return c.latency.RecordFunc(metrics.OpReload, c.reload)
}

func (c *Cache) reload() error {
	for _, a := range c.ordered {
		a.SetRemovedHandler(nil)
	}
	c.entries = make(map[string]asset.Asset)
	c.ordered = nil

	count, ok, err := c.store.GetInt(c.countKey())
	if err != nil {
		return errors.Wrap(err, "read asset count")
	}
	if !ok {
		return nil
	}

	for i := 0; i < count; i++ {
		slot := c.slotKey(i)
		raw, ok, err := c.store.GetString(slot)
		if err != nil {
			c.logger.Error("Failed to read asset descriptor", "slot", slot, "error", err)
			continue
		}
		if !ok {
			c.logger.Warn("Asset descriptor missing", "slot", slot)
			continue
		}
		a, err := c.restore(raw)
		if err != nil {
			c.logger.Error("Asset failed to deserialize", "slot", slot, "error", err)
			continue
		}
		if err := c.Insert(a, false); err != nil {
			c.logger.Error("Failed to index restored asset", "slot", slot, "error", err)
			continue
		}
	}
	return nil
}

func (c *Cache) restore(raw string) (asset.Asset, error) {
	d, err := asset.ParseDescriptor(raw)
	if err != nil {
		return nil, err
	}
	return c.registry.Deserialize(d)
}

// Close closes the underlying store. The in-memory index is left as is.
func (c *Cache) Close() error {
	return c.store.Close()
}
