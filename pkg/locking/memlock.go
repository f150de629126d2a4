package locking

import "sync"

// MemLock is a Group backed by in-process mutexes. A key's mutex exists only
// while someone holds or waits for it, so long-lived locks over many cache
// prefixes do not accumulate.
type MemLock struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

var _ Group = (*MemLock)(nil)

type keyLock struct {
	sync.Mutex
	refs int
}

func NewMemLock() *MemLock {
	return &MemLock{
		locks: make(map[string]*keyLock),
	}
}

func (m *MemLock) Do(key string, fn func() error) error {
	l := m.acquire(key)
	l.Lock()
	defer m.release(key, l)
	return fn()
}

func (m *MemLock) acquire(key string) *keyLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{}
		m.locks[key] = l
	}
	l.refs++
	return l
}

func (m *MemLock) release(key string, l *keyLock) {
	l.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

// Len returns the number of keys currently held or waited on.
func (m *MemLock) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
