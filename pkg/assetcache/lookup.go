package assetcache

import (
	"github.com/cockroachdb/errors"

	"github.com/richardartoul/assetcache/pkg/asset"
	"github.com/richardartoul/assetcache/pkg/metrics"
)

// Lookup returns the asset indexed under the key of url if it is an A. An
// asset of another type is reported as absent.
func Lookup[A asset.Asset](c *Cache, url string) (A, bool) {
	var zero A
	a, ok := c.Get(url)
	if !ok {
		return zero, false
	}
	typed, ok := a.(A)
	if !ok {
		return zero, false
	}
	return typed, true
}

// LoadValue loads the payload of the asset cached for url. With refresh the
// asset's lifetime restarts first; the new expiration reaches the store on
// the next Persist.
func LoadValue[T any](c *Cache, url string, refresh bool) (T, error) {
	var value T
	a, ok := Lookup[asset.Loadable[T]](c, url)
	if !ok {
		return value, errors.Wrapf(asset.ErrNotFound, "no loadable asset cached for %s", url)
	}
	if refresh {
		a.RefreshExpiration()
	}
	err := c.latency.RecordFunc(metrics.OpLoad, func() error {
		var err error
		value, err = a.Load()
		return err
	})
	return value, err
}
