package kvdb

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var errMemoryClosed = errors.New("kvdb: memory store closed")

// MemoryStore is an ephemeral map-backed store. It is safe for concurrent
// use and is the default engine for tests.
type MemoryStore struct {
	db   map[string][]byte
	lock sync.RWMutex
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{db: make(map[string][]byte)}
}

func (m *MemoryStore) Has(key []byte) (bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if m.db == nil {
		return false, errMemoryClosed
	}
	_, ok := m.db[string(key)]
	return ok, nil
}

func (m *MemoryStore) Get(key []byte) ([]byte, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if m.db == nil {
		return nil, errMemoryClosed
	}
	if val, ok := m.db[string(key)]; ok {
		return append([]byte(nil), val...), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Put(key []byte, value []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.db == nil {
		return errMemoryClosed
	}
	m.db[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(key []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.db == nil {
		return errMemoryClosed
	}
	delete(m.db, string(key))
	return nil
}

// NewIterator iterates over a snapshot of the keys carrying the prefix, in
// ascending order. Mutations after creation are not observed.
func (m *MemoryStore) NewIterator(prefix []byte) Iterator {
	m.lock.RLock()
	defer m.lock.RUnlock()

	var (
		pr     = string(prefix)
		keys   = make([]string, 0, len(m.db))
		values = make([][]byte, 0, len(m.db))
	)
	for key := range m.db {
		if strings.HasPrefix(key, pr) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		values = append(values, m.db[key])
	}
	return &memIterator{keys: keys, values: values, index: -1}
}

func (m *MemoryStore) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.db = nil
	return nil
}

// Len returns the number of stored entries, for tests.
func (m *MemoryStore) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return len(m.db)
}

type memIterator struct {
	keys   []string
	values [][]byte
	index  int
}

func (it *memIterator) Next() bool {
	if it.index >= len(it.keys) {
		return false
	}
	it.index++
	return it.index < len(it.keys)
}

func (it *memIterator) Key() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return []byte(it.keys[it.index])
}

func (it *memIterator) Value() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return it.values[it.index]
}

func (it *memIterator) Release() {
	it.keys, it.values = nil, nil
}

func (it *memIterator) Error() error { return nil }
