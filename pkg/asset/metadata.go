package asset

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// MaxTime is the expiration of assets that never expire.
var MaxTime = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)

// maxLifetimeDays bounds lifetimes so date arithmetic cannot overflow.
const maxLifetimeDays = 10000 * 366

// Clock returns the current time. Assets read it whenever they refresh or
// check expiration.
type Clock func() time.Time

// SystemClock is the default Clock.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Metadata is the part of an asset that is persisted in the cache index.
type Metadata struct {
	Kind         string    `json:"kind"`
	URL          string    `json:"url"`
	Key          string    `json:"key"`
	RefreshedAt  time.Time `json:"refreshed_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LifetimeDays int       `json:"lifetime_days"`
}

// ExpirationFor computes the expiration of an asset refreshed at refreshedAt.
// A negative lifetime never expires.
func ExpirationFor(refreshedAt time.Time, lifetimeDays int) time.Time {
	if lifetimeDays < 0 {
		return MaxTime
	}
	if lifetimeDays > maxLifetimeDays {
		return MaxTime
	}
	expires := refreshedAt.UTC().AddDate(0, 0, lifetimeDays)
	if expires.After(MaxTime) {
		return MaxTime
	}
	return expires
}

// DecodeMetadata parses the metadata JSON stored in a descriptor.
func DecodeMetadata(data string) (Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return Metadata{}, errors.Mark(errors.Wrap(err, "decode asset metadata"), ErrInvalidDescriptor)
	}
	if meta.Kind == "" || meta.Key == "" {
		return Metadata{}, errors.Wrapf(ErrInvalidDescriptor, "metadata for %q is missing kind or key", meta.URL)
	}
	return meta, nil
}
