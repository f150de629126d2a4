package locking

// Group runs functions with mutual exclusion per key. The cache helpers key
// it by the index slot prefix, so callers sharing a store through different
// prefixes do not wait on each other.
type Group interface {
	// Do runs fn while holding the lock for key and returns its error.
	Do(key string, fn func() error) error
}
