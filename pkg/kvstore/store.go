// Package kvstore provides the key/value text stores the cache index is
// persisted to.
package kvstore

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Store is a flat key/value store holding integers and strings. Writes may be
// buffered until Flush.
type Store interface {
	// GetInt returns the integer under key and whether it exists.
	GetInt(key string) (int, bool, error)
	SetInt(key string, value int) error
	// GetString returns the string under key and whether it exists.
	GetString(key string) (string, bool, error)
	SetString(key string, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Flush makes all previous writes durable.
	Flush() error
	Close() error
}

// ErrWrongType is returned when GetInt finds a value that is not an integer.
var ErrWrongType = errors.New("value has the wrong type")

// DefaultQueryTimeout bounds each operation of network or database backed
// stores.
const DefaultQueryTimeout = 5 * time.Second

type config struct {
	queryTimeout time.Duration
	prefix       string
}

// Option configures a Store implementation.
type Option func(*config)

func applyOptions(opts []Option) config {
	cfg := config{queryTimeout: DefaultQueryTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithQueryTimeout sets the per-operation timeout for the Redis and SQLite
// stores. Defaults to DefaultQueryTimeout.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.queryTimeout = d
		}
	}
}

// WithPrefix namespaces keys in the Redis store.
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}
