// Package asset defines the cached asset contract shared by every payload
// kind: metadata, expiration and the load/save/release/remove lifecycle.
package asset

import "time"

// Asset is a single cached entry as seen by the cache index. The index never
// looks at payloads, only at this interface.
type Asset interface {
	Kind() string
	URL() string
	Key() string
	RefreshedAt() time.Time
	ExpiresAt() time.Time
	LifetimeDays() int
	IsExpired() bool

	// RefreshExpiration restarts the lifetime from now, optionally replacing
	// the lifetime in days.
	RefreshExpiration(overrideLifetimeDays ...int)

	// Release frees the in-memory payload without touching the backing store.
	Release() error

	// Remove deletes the payload from the backing store and notifies the
	// removal handler.
	Remove() error

	// SetRemovedHandler installs the single removal subscriber. Passing nil
	// unsubscribes.
	SetRemovedHandler(fn func())

	// MarshalMetadata returns the JSON persisted for this asset.
	MarshalMetadata() ([]byte, error)
}

// Loadable is an Asset with a typed payload.
type Loadable[T any] interface {
	Asset
	Load() (T, error)
	Save(payload T) error
	IsLoaded() bool
}

// IsExpired is the default sweep predicate.
func IsExpired(a Asset) bool {
	return a.IsExpired()
}
