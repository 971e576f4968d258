package kvdb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	ldbiter "github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore wraps a goleveldb instance rooted at a directory.
type LevelDBStore struct {
	db *leveldb.DB
}

// NewLevelDBStore opens (creating if necessary) a LevelDB database at dir.
func NewLevelDBStore(dir string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{
		OpenFilesCacheCapacity: 64,
		BlockCacheCapacity:     8 * opt.MiB,
		WriteBuffer:            4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %s", dir)
	}
	return &LevelDBStore{db: db}, nil
}

func (l *LevelDBStore) Has(key []byte) (bool, error) {
	return l.db.Has(key, nil)
}

func (l *LevelDBStore) Get(key []byte) ([]byte, error) {
	val, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (l *LevelDBStore) Put(key []byte, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *LevelDBStore) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *LevelDBStore) NewIterator(prefix []byte) Iterator {
	return &ldbIterator{iter: l.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

func (l *LevelDBStore) Close() error {
	return l.db.Close()
}

// ldbIterator adapts goleveldb's iterator, copying keys and values since the
// underlying buffers are reused between steps.
type ldbIterator struct {
	iter ldbiter.Iterator
}

func (it *ldbIterator) Next() bool { return it.iter.Next() }

func (it *ldbIterator) Key() []byte {
	return append([]byte(nil), it.iter.Key()...)
}

func (it *ldbIterator) Value() []byte {
	return append([]byte(nil), it.iter.Value()...)
}

func (it *ldbIterator) Release() { it.iter.Release() }

func (it *ldbIterator) Error() error { return it.iter.Error() }
