package asset

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Descriptor is the record persisted per cache slot. The field names are part
// of the storage format.
type Descriptor struct {
	CachingType     string
	CachedAssetJSON string
}

// Valid reports whether both fields are present.
func (d Descriptor) Valid() bool {
	return d.CachingType != "" && d.CachedAssetJSON != ""
}

// NewDescriptor builds the descriptor of an asset.
func NewDescriptor(a Asset) (Descriptor, error) {
	data, err := a.MarshalMetadata()
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		CachingType:     a.Kind(),
		CachedAssetJSON: string(data),
	}, nil
}

// Encode returns the JSON form written to the key/value store.
func (d Descriptor) Encode() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", errors.Wrap(err, "encode descriptor")
	}
	return string(data), nil
}

// ParseDescriptor decodes and validates a stored descriptor.
func ParseDescriptor(s string) (Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return Descriptor{}, errors.Mark(errors.Wrap(err, "decode descriptor"), ErrInvalidDescriptor)
	}
	if !d.Valid() {
		return Descriptor{}, errors.Wrap(ErrInvalidDescriptor, "descriptor is missing its type or payload")
	}
	return d, nil
}
