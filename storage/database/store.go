package database

import (
	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/core/types"
	"github.com/fuelnet/fuelnode/errs"
	"github.com/fuelnet/fuelnode/log"
)

// Direction orders an Iter call, matching the two traversal directions the
// block-height and owned-coin index scans need.
type Direction uint8

const (
	Forward Direction = iota
	Backward
)

// Iterator walks a snapshot-consistent range of (key, value) pairs with the
// column prefix already stripped.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

// KeyValueStore is the raw, column-agnostic contract every backend
// implements: plain bytes in, plain bytes out. Column addressing is
// layered on top by Store via key prefixing, the same table/prefix
// pattern the teacher's leveldb table type uses for per-entry-type
// namespacing.
type KeyValueStore interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	NewIterator(prefix []byte) Iterator
	Close() error
}

// Batch accumulates writes for one atomic commit.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	ValueSize() int
	Write() error
	Reset()
}

// Backend is a KeyValueStore that additionally supports batched atomic
// writes and point-in-time snapshots.
type Backend interface {
	KeyValueStore
	NewBatch() Batch
	Snapshot() (KeyValueStore, error)
	Close() error
}

var metadataLatestHeightKey = []byte("latest_height")

// Store is the column-addressed engine described in spec.md §4: a cache
// wrapper in front of a pluggable Backend, exposing get/put/delete/exists,
// prefix iteration, write transactions, atomic multi-column commits and
// consistent snapshot views.
type Store struct {
	backend Backend
	cache   *columnCache
	blocks  common.Cache
	logger  *log.Logger
}

// NewStore wraps backend with a per-column idle-expiring cache of the given
// per-column capacity (0 disables caching, used by tests that want to
// observe the backend directly), plus an object-level LRU of decoded Block
// values so repeated GetBlock calls (sync's header-batch replies, the
// block-request server) skip re-decoding the same bytes.
func NewStore(backend Backend, cacheSize int) *Store {
	s := &Store{
		backend: backend,
		cache:   newColumnCache(cacheSize),
		logger:  log.NewModuleLogger("storage"),
	}
	if cacheSize > 0 {
		blocks, err := common.NewCache(common.LRUConfig{CacheSize: cacheSize})
		if err != nil {
			s.logger.Warn("disabling block object cache", "err", err)
		} else {
			s.blocks = blocks
		}
	}
	return s
}

func colKey(col Column, key []byte) []byte {
	b := make([]byte, 1+len(key))
	b[0] = byte(col)
	copy(b[1:], key)
	return b
}

// Get returns the value stored at (col, key); found is false, with a nil
// error, when the key is absent. I/O failures are returned unchanged
// wrapped in errs.StorageError, per the not_found-is-not-an-I/O-error
// contract.
func (s *Store) Get(col Column, key []byte) (value []byte, found bool, err error) {
	if v, ok := s.cache.get(col, key); ok {
		if v == nil {
			return nil, false, nil
		}
		return v, true, nil
	}
	v, err := s.backend.Get(colKey(col, key))
	if err != nil {
		if err == errs.ErrNotFound {
			s.cache.put(col, key, nil)
			return nil, false, nil
		}
		return nil, false, errs.NewStorageError(err)
	}
	s.cache.put(col, key, v)
	return v, true, nil
}

// MustGet behaves like Get but returns a NotFoundError instead of
// (nil, false, nil) when the key is absent, for the typed accessors that
// have no legitimate "missing" case.
func (s *Store) MustGet(what string, col Column, key []byte) ([]byte, error) {
	v, found, err := s.Get(col, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errs.NewNotFound(what, col.String())
	}
	return v, nil
}

func (s *Store) Exists(col Column, key []byte) (bool, error) {
	_, found, err := s.Get(col, key)
	return found, err
}

func (s *Store) Put(col Column, key, value []byte) error {
	if err := s.backend.Put(colKey(col, key), value); err != nil {
		return errs.NewStorageError(err)
	}
	s.cache.put(col, key, value)
	return nil
}

func (s *Store) Delete(col Column, key []byte) error {
	if err := s.backend.Delete(colKey(col, key)); err != nil {
		return errs.NewStorageError(err)
	}
	s.cache.put(col, key, nil)
	return nil
}

// Iter returns a snapshot-consistent iterator over col restricted to keys
// with the given prefix, in dir order. Iteration bypasses the cache, per
// spec.md §4's cache-wrapper contract.
func (s *Store) Iter(col Column, prefix []byte, dir Direction) Iterator {
	raw := s.backend.NewIterator(colKey(col, prefix))
	it := &columnIterator{raw: raw, colPrefixLen: 1}
	if dir == Forward {
		return it
	}
	return newReverseIterator(it)
}

// WriteTransaction opens a buffered transaction: reads see prior writes
// made within the same transaction (read-your-writes) layered over the
// committed store; nothing is visible to other readers until Commit.
func (s *Store) WriteTransaction() *Txn {
	return &Txn{store: s, changes: NewChanges()}
}

// CommitChanges applies a column-partitioned Changes set atomically via a
// single backend batch.
func (s *Store) CommitChanges(c *Changes) error {
	batch := s.backend.NewBatch()
	for col, ops := range c.byColumn {
		for _, op := range ops {
			switch op.Op {
			case OpInsert:
				batch.Put(colKey(col, op.Key), op.Value)
			case OpRemove:
				batch.Delete(colKey(col, op.Key))
			}
		}
	}
	if err := batch.Write(); err != nil {
		return errs.NewStorageError(err)
	}
	for col, ops := range c.byColumn {
		for _, op := range ops {
			if op.Op == OpRemove {
				s.cache.put(col, op.Key, nil)
				if col == ColumnBlocks && s.blocks != nil {
					s.blocks.Add(common.BytesToHash(op.Key), nil)
				}
				continue
			}
			s.cache.put(col, op.Key, op.Value)
			if col == ColumnBlocks && s.blocks != nil {
				if b, err := types.DecodeBlock(op.Value); err == nil {
					s.blocks.Add(common.BytesToHash(op.Key), b)
				}
			}
		}
	}
	return nil
}

// LatestHeight reads the chain tip height recorded in ColumnMetadata.
func (s *Store) LatestHeight() (uint64, bool, error) {
	v, found, err := s.Get(ColumnMetadata, metadataLatestHeightKey)
	if err != nil || !found {
		return 0, found, err
	}
	return decodeUint64(v), true, nil
}

func (s *Store) SetLatestHeight(height uint64) error {
	return s.Put(ColumnMetadata, metadataLatestHeightKey, encodeUint64(height))
}

// LatestView snapshots the backend for a consistent read-only view,
// immune to concurrent writers, the same guarantee NewLDBDatabase's
// underlying engine gives a leveldb.Snapshot.
func (s *Store) LatestView() (ReadView, error) {
	snap, err := s.backend.Snapshot()
	if err != nil {
		return nil, errs.NewStorageError(err)
	}
	return &readView{kv: snap}, nil
}

func (s *Store) Close() error { return s.backend.Close() }

// ReadView is a point-in-time, read-only view over the store.
type ReadView interface {
	Get(col Column, key []byte) ([]byte, bool, error)
	Exists(col Column, key []byte) (bool, error)
	Iter(col Column, prefix []byte, dir Direction) Iterator
	LatestHeight() (uint64, bool, error)
	Release() error
}

type readView struct{ kv KeyValueStore }

func (v *readView) Get(col Column, key []byte) ([]byte, bool, error) {
	val, err := v.kv.Get(colKey(col, key))
	if err == errs.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.NewStorageError(err)
	}
	return val, true, nil
}

func (v *readView) Exists(col Column, key []byte) (bool, error) {
	_, found, err := v.Get(col, key)
	return found, err
}

func (v *readView) Iter(col Column, prefix []byte, dir Direction) Iterator {
	it := &columnIterator{raw: v.kv.NewIterator(colKey(col, prefix)), colPrefixLen: 1}
	if dir == Forward {
		return it
	}
	return newReverseIterator(it)
}

func (v *readView) LatestHeight() (uint64, bool, error) {
	val, found, err := v.Get(ColumnMetadata, metadataLatestHeightKey)
	if err != nil || !found {
		return 0, found, err
	}
	return decodeUint64(val), true, nil
}

func (v *readView) Release() error { return v.kv.Close() }

// Txn is a buffered write transaction. Its own pending writes are visible
// to its own reads; nothing is visible elsewhere until Commit.
type Txn struct {
	store   *Store
	changes *Changes
}

func (t *Txn) Get(col Column, key []byte) ([]byte, bool, error) {
	if v, removed, ok := t.changes.lookup(col, key); ok {
		if removed {
			return nil, false, nil
		}
		return v, true, nil
	}
	return t.store.Get(col, key)
}

func (t *Txn) Put(col Column, key, value []byte) { t.changes.Insert(col, key, value) }
func (t *Txn) Delete(col Column, key []byte)     { t.changes.Remove(col, key) }

func (t *Txn) Commit() error { return t.store.CommitChanges(t.changes) }

func encodeUint64(n uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(n)
		n >>= 8
	}
	return b
}

func decodeUint64(b []byte) uint64 {
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}
	return n
}
