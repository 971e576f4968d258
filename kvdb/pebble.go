package kvdb

import (
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

// PebbleStore wraps a pebble instance rooted at a directory.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (creating if necessary) a pebble database at dir.
func NewPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		Cache:        pebble.NewCache(8 << 20),
		MaxOpenFiles: 64,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "opening pebble at %s", dir)
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) Has(key []byte) (bool, error) {
	_, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

func (p *PebbleStore) Get(key []byte) ([]byte, error) {
	val, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ret := append([]byte(nil), val...)
	closer.Close()
	return ret, nil
}

func (p *PebbleStore) Put(key []byte, value []byte) error {
	return p.db.Set(key, value, pebble.NoSync)
}

func (p *PebbleStore) Delete(key []byte) error {
	return p.db.Delete(key, pebble.NoSync)
}

func (p *PebbleStore) NewIterator(prefix []byte) Iterator {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return &pebbleIterator{err: err}
	}
	return &pebbleIterator{iter: iter}
}

func (p *PebbleStore) Close() error {
	return p.db.Close()
}

type pebbleIterator struct {
	iter    *pebble.Iterator
	started bool
	err     error
}

func (it *pebbleIterator) Next() bool {
	if it.iter == nil {
		return false
	}
	if !it.started {
		it.started = true
		return it.iter.First()
	}
	return it.iter.Next()
}

func (it *pebbleIterator) Key() []byte {
	if it.iter == nil || !it.iter.Valid() {
		return nil
	}
	return append([]byte(nil), it.iter.Key()...)
}

func (it *pebbleIterator) Value() []byte {
	if it.iter == nil || !it.iter.Valid() {
		return nil
	}
	return append([]byte(nil), it.iter.Value()...)
}

func (it *pebbleIterator) Release() {
	if it.iter != nil {
		it.iter.Close()
		it.iter = nil
	}
}

func (it *pebbleIterator) Error() error {
	if it.err != nil {
		return it.err
	}
	if it.iter == nil {
		return nil
	}
	return it.iter.Error()
}
