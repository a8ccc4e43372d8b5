package database

import (
	"errors"
	"sort"
	"sync"

	"github.com/fuelnet/fuelnode/errs"
)

var errReadOnlySnapshotBase = errors.New("write on a read-only snapshot")

// MemStore is the in-memory Backend (spec.md §6 database_type = in-memory):
// a plain map guarded by a mutex, snapshotted by value-copy. It exists for
// tests and ephemeral/dev nodes; MemStore never persists across restarts.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemStore) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *MemStore) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *MemStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *MemStore) NewIterator(prefix []byte) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newMemIterator(m.data, prefix)
}

func (m *MemStore) Snapshot() (KeyValueStore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	frozen := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		frozen[k] = v
	}
	return &memSnapshot{data: frozen}, nil
}

func (m *MemStore) Close() error { return nil }

func (m *MemStore) NewBatch() Batch { return &memBatch{store: m} }

// memSnapshot is a frozen, read-only copy of the store at the moment
// Snapshot was called.
type memSnapshot struct{ data map[string][]byte }

func (s *memSnapshot) Get(key []byte) ([]byte, error) {
	v, ok := s.data[string(key)]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return v, nil
}
func (s *memSnapshot) Has(key []byte) (bool, error) {
	_, ok := s.data[string(key)]
	return ok, nil
}
func (s *memSnapshot) Put([]byte, []byte) error { return errs.NewStorageError(errReadOnlySnapshotBase) }
func (s *memSnapshot) Delete([]byte) error      { return errs.NewStorageError(errReadOnlySnapshotBase) }
func (s *memSnapshot) NewIterator(prefix []byte) Iterator {
	return newMemIterator(s.data, prefix)
}
func (s *memSnapshot) Close() error { return nil }

func newMemIterator(data map[string][]byte, prefix []byte) Iterator {
	keys := make([]string, 0, len(data))
	p := string(prefix)
	for k := range data {
		if len(k) >= len(p) && k[:len(p)] == p {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return &memIterator{keys: keys, data: data, pos: -1}
}

type memIterator struct {
	keys []string
	data map[string][]byte
	pos  int
}

func (it *memIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}
func (it *memIterator) Key() []byte   { return []byte(it.keys[it.pos]) }
func (it *memIterator) Value() []byte { return it.data[it.keys[it.pos]] }
func (it *memIterator) Error() error  { return nil }
func (it *memIterator) Release()      {}

type memBatch struct {
	store *MemStore
	ops   []change
	size  int
}

func (b *memBatch) Put(key, value []byte) {
	b.ops = append(b.ops, change{Op: OpInsert, Key: append([]byte(nil), key...), Value: append([]byte(nil), value...)})
	b.size += len(value)
}

func (b *memBatch) Delete(key []byte) {
	b.ops = append(b.ops, change{Op: OpRemove, Key: append([]byte(nil), key...)})
}

func (b *memBatch) ValueSize() int { return b.size }

func (b *memBatch) Write() error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, op := range b.ops {
		if op.Op == OpRemove {
			delete(b.store.data, string(op.Key))
		} else {
			b.store.data[string(op.Key)] = op.Value
		}
	}
	return nil
}

func (b *memBatch) Reset() {
	b.ops = nil
	b.size = 0
}
