package kvstore

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// Memory is a Store kept entirely in process memory.
type Memory struct {
	mu      sync.Mutex
	ints    map[string]int
	strings map[string]string
	flushes int
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		ints:    make(map[string]int),
		strings: make(map[string]string),
	}
}

func (m *Memory) GetInt(key string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.ints[key]; ok {
		return v, true, nil
	}
	if _, ok := m.strings[key]; ok {
		return 0, false, errors.Wrapf(ErrWrongType, "key %s holds a string", key)
	}
	return 0, false, nil
}

func (m *Memory) SetInt(key string, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.strings, key)
	m.ints[key] = value
	return nil
}

func (m *Memory) GetString(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *Memory) SetString(key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ints, key)
	m.strings[key] = value
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ints, key)
	delete(m.strings, key)
	return nil
}

func (m *Memory) Flush() error {
	m.mu.Lock()
	m.flushes++
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Len returns the number of keys held.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ints) + len(m.strings)
}

// Flushes returns how many times Flush was called.
func (m *Memory) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}
