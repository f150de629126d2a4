package assetcache

import (
	"context"
	"time"

	"github.com/richardartoul/assetcache/pkg/locking"
)

// DefaultPollInterval is the WaitUntil interval used when none is given.
const DefaultPollInterval = 100 * time.Millisecond

// Serialized shares one Cache between goroutines by running every access
// under a lock keyed by the cache's slot prefix.
type Serialized struct {
	cache *Cache
	group locking.Group
}

// NewSerialized wraps c. A nil group defaults to an in-process MemLock.
func NewSerialized(c *Cache, group locking.Group) *Serialized {
	if group == nil {
		group = locking.NewMemLock()
	}
	return &Serialized{cache: c, group: group}
}

// Do runs fn with exclusive access to the cache.
func (s *Serialized) Do(fn func(c *Cache) error) error {
	return s.group.Do(s.cache.prefix, func() error {
		return fn(s.cache)
	})
}

// WaitUntil polls cond every interval until it returns true or ctx is done.
func WaitUntil(ctx context.Context, cond func() bool, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if cond() {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if cond() {
				return nil
			}
		}
	}
}
