package repository

import (
	"bytes"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
)

// memoryKV is an in-memory fake standing in for levelDB in tests, per
// SPEC_FULL.md's "in-memory fakes beside the real providers" requirement.
type memoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV returns an empty in-memory KV store.
func NewMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string][]byte)}
}

func (m *memoryKV) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[string(key)] = cp
	return nil
}

func (m *memoryKV) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *memoryKV) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, leveldb.ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *memoryKV) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *memoryKV) NewIteratorWithPrefix(prefix []byte) iterator.Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys [][]byte
	var values [][]byte
	for k, v := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, []byte(k))
			values = append(values, v)
		}
	}
	return &sliceIterator{keys: keys, values: values, pos: -1}
}

func (m *memoryKV) Close() {}

// sliceIterator adapts a pre-collected key/value slice to goleveldb's
// iterator.Iterator interface so memoryKV can serve NewIteratorWithPrefix
// without depending on goleveldb's internal memdb.
type sliceIterator struct {
	keys   [][]byte
	values [][]byte
	pos    int
}

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *sliceIterator) Key() []byte   { return it.keys[it.pos] }
func (it *sliceIterator) Value() []byte { return it.values[it.pos] }
func (it *sliceIterator) Release()      {}
func (it *sliceIterator) Error() error  { return nil }

func (it *sliceIterator) First() bool {
	it.pos = 0
	return len(it.keys) > 0
}

func (it *sliceIterator) Last() bool {
	it.pos = len(it.keys) - 1
	return it.pos >= 0
}

func (it *sliceIterator) Prev() bool {
	it.pos--
	return it.pos >= 0
}

func (it *sliceIterator) Seek(key []byte) bool {
	for i, k := range it.keys {
		if bytes.Compare(k, key) >= 0 {
			it.pos = i
			return true
		}
	}
	return false
}

func (it *sliceIterator) SetReleaser(_ iterator.Releaser) {}
