package database

import (
	"github.com/syndtr/goleveldb/leveldb"
	leveldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/fuelnet/fuelnode/errs"
	"github.com/fuelnet/fuelnode/log"
)

// LevelStore is the persistent Backend (spec.md §6 database_type =
// rocks-db; goleveldb stands in for it the way the teacher's
// leveldb_database.go stands in for klaytn's pluggable engines). Columns
// are not separate leveldb instances: Store's colKey prefixing keeps every
// column in the same physical database, avoiding one file-descriptor set
// per column.
type LevelStore struct {
	path string
	db   *leveldb.DB
	log  *log.Logger
}

func levelOptions(cacheSizeMB, numHandles int) *opt.Options {
	if cacheSizeMB < 16 {
		cacheSizeMB = 16
	}
	if numHandles < 16 {
		numHandles = 16
	}
	return &opt.Options{
		OpenFilesCacheCapacity: numHandles,
		BlockCacheCapacity:     cacheSizeMB / 2 * opt.MiB,
		WriteBuffer:            cacheSizeMB / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}
}

// OpenLevelStore opens (or recovers, on detected corruption) a goleveldb
// database rooted at path.
func OpenLevelStore(path string, cacheSizeMB, numHandles int) (*LevelStore, error) {
	logger := log.NewModuleLogger("storage.leveldb")
	options := levelOptions(cacheSizeMB, numHandles)
	db, err := leveldb.OpenFile(path, options)
	if _, corrupted := err.(*leveldberrors.ErrCorrupted); corrupted {
		logger.Warn("recovering corrupted database", "path", path)
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, errs.NewStorageError(err)
	}
	logger.Info("opened leveldb store", "path", path)
	return &LevelStore{path: path, db: db, log: logger}, nil
}

func (s *LevelStore) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, errs.ErrNotFound
	}
	return v, err
}

func (s *LevelStore) Has(key []byte) (bool, error) { return s.db.Has(key, nil) }

func (s *LevelStore) Put(key, value []byte) error { return s.db.Put(key, value, nil) }

func (s *LevelStore) Delete(key []byte) error { return s.db.Delete(key, nil) }

func (s *LevelStore) NewIterator(prefix []byte) Iterator {
	return &levelIterator{it: s.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

func (s *LevelStore) Snapshot() (KeyValueStore, error) {
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &levelSnapshot{snap: snap}, nil
}

func (s *LevelStore) NewBatch() Batch {
	return &levelBatch{db: s.db, b: new(leveldb.Batch)}
}

func (s *LevelStore) Close() error {
	err := s.db.Close()
	if err != nil {
		s.log.Error("failed to close leveldb store", "err", err)
	} else {
		s.log.Info("closed leveldb store")
	}
	return err
}

type levelIterator struct{ it interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
} }

func (it *levelIterator) Next() bool    { return it.it.Next() }
func (it *levelIterator) Key() []byte   { return it.it.Key() }
func (it *levelIterator) Value() []byte { return it.it.Value() }
func (it *levelIterator) Error() error  { return it.it.Error() }
func (it *levelIterator) Release()      { it.it.Release() }

type levelSnapshot struct{ snap *leveldb.Snapshot }

func (s *levelSnapshot) Get(key []byte) ([]byte, error) {
	v, err := s.snap.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, errs.ErrNotFound
	}
	return v, err
}
func (s *levelSnapshot) Has(key []byte) (bool, error) { return s.snap.Has(key, nil) }
func (s *levelSnapshot) Put([]byte, []byte) error     { return errs.NewStorageError(errReadOnlySnapshotBase) }
func (s *levelSnapshot) Delete([]byte) error          { return errs.NewStorageError(errReadOnlySnapshotBase) }
func (s *levelSnapshot) NewIterator(prefix []byte) Iterator {
	return &levelIterator{it: s.snap.NewIterator(util.BytesPrefix(prefix), nil)}
}
func (s *levelSnapshot) Close() error { s.snap.Release(); return nil }

type levelBatch struct {
	db   *leveldb.DB
	b    *leveldb.Batch
	size int
}

func (b *levelBatch) Put(key, value []byte) {
	b.b.Put(key, value)
	b.size += len(key) + len(value)
}
func (b *levelBatch) Delete(key []byte) {
	b.b.Delete(key)
	b.size += len(key)
}
func (b *levelBatch) ValueSize() int { return b.size }
func (b *levelBatch) Write() error   { return b.db.Write(b.b, nil) }
func (b *levelBatch) Reset()         { b.b.Reset(); b.size = 0 }
