package asset

import "github.com/cockroachdb/errors"

// Sentinel errors classifying cache failures. Errors returned by this module
// are wrapped or marked with one of these so callers can use errors.Is.
var (
	// ErrNotFound reports a key or URL absent from the cache.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey reports an insert whose key is already indexed.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrBacking reports a failed read, write, release or delete of a payload.
	ErrBacking = errors.New("backing store failure")
	// ErrNoDeserializer reports a descriptor whose kind no deserializer claims.
	ErrNoDeserializer = errors.New("no deserializer found")
	// ErrInvalidDescriptor reports a persisted descriptor that cannot be used.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
	// ErrConstruction reports a new asset whose initial save failed.
	ErrConstruction = errors.New("asset construction failed")
)
