package asset

import "github.com/cockroachdb/errors"

// Deserializer rebuilds an asset from a descriptor. It reports matched=false
// when the kind is not one it handles. A matched deserializer that fails
// returns matched=true and the error; the registry then moves on as if it
// had declined.
type Deserializer func(kind, payloadJSON string) (a Asset, matched bool, err error)

// KindDeserializer returns a Deserializer matching exactly one kind. It decodes
// the metadata and hands it to build.
func KindDeserializer(kind string, build func(meta Metadata) (Asset, error)) Deserializer {
	return func(k, payloadJSON string) (Asset, bool, error) {
		if k != kind {
			return nil, false, nil
		}
		meta, err := DecodeMetadata(payloadJSON)
		if err != nil {
			return nil, true, err
		}
		if meta.Kind != kind {
			return nil, true, errors.Wrapf(ErrInvalidDescriptor,
				"descriptor type %q does not match metadata kind %q", kind, meta.Kind)
		}
		a, err := build(meta)
		if err != nil {
			return nil, true, err
		}
		return a, true, nil
	}
}

// Registry is the ordered list of deserializers consulted on reload.
//
// Built-in deserializers are always tried before registered ones, whatever
// order Builtin and Register are called in. Within each group, registration
// order is preserved.
type Registry struct {
	builtins []Deserializer
	extra    []Deserializer
}

// NewRegistry returns a registry seeded with the given built-in deserializers.
func NewRegistry(builtins ...Deserializer) *Registry {
	r := &Registry{}
	r.Builtin(builtins...)
	return r
}

// Builtin appends to the built-in group.
func (r *Registry) Builtin(ds ...Deserializer) {
	for _, d := range ds {
		if d != nil {
			r.builtins = append(r.builtins, d)
		}
	}
}

// Register appends caller-supplied deserializers. They are consulted only
// after every built-in declined.
func (r *Registry) Register(ds ...Deserializer) {
	for _, d := range ds {
		if d != nil {
			r.extra = append(r.extra, d)
		}
	}
}

// Len returns the number of deserializers.
func (r *Registry) Len() int {
	return len(r.builtins) + len(r.extra)
}

// Deserialize returns the asset built by the first deserializer that claims
// the descriptor and succeeds. A deserializer that claims it but fails counts
// as declining, so later ones, registered overrides included, still get a
// turn. When none succeeds the failures are returned marked
// ErrInvalidDescriptor, or ErrNoDeserializer if nothing claimed the kind.
func (r *Registry) Deserialize(d Descriptor) (Asset, error) {
	if !d.Valid() {
		return nil, errors.Wrap(ErrInvalidDescriptor, "descriptor is missing its type or payload")
	}
	var failed error
	for _, group := range [][]Deserializer{r.builtins, r.extra} {
		for _, deserialize := range group {
			a, matched, err := deserialize(d.CachingType, d.CachedAssetJSON)
			if !matched {
				continue
			}
			if err == nil && a == nil {
				err = errors.New("deserializer returned no asset")
			}
			if err != nil {
				failed = errors.CombineErrors(failed, err)
				continue
			}
			return a, nil
		}
	}
	if failed != nil {
		return nil, errors.Mark(errors.Wrapf(failed, "deserialize %s", d.CachingType), ErrInvalidDescriptor)
	}
	return nil, errors.Wrapf(ErrNoDeserializer, "kind %q", d.CachingType)
}
