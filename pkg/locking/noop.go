package locking

// NoOpGroup is a Group that runs every function immediately. The command
// line tool uses it: each invocation owns its cache on a single goroutine,
// and the index file itself is guarded by a FileLock.
type NoOpGroup struct{}

func NewNoOpGroup() *NoOpGroup {
	return &NoOpGroup{}
}

func (NoOpGroup) Do(_ string, fn func() error) error {
	return fn()
}
