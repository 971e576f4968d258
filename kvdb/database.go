// Package kvdb defines the key/value store backing the relay's persistent
// state, together with the supported backend implementations. The interface
// is deliberately narrow: the state layer only ever reads, writes and scans
// by prefix.
package kvdb

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("kvdb: not found")

// KeyValueReader wraps the Has and Get methods of a backing data store.
type KeyValueReader interface {
	// Has retrieves if a key is present in the key-value data store.
	Has(key []byte) (bool, error)

	// Get retrieves the given key if it's present in the key-value data store.
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter wraps the Put and Delete methods of a backing data store.
type KeyValueWriter interface {
	// Put inserts the given value into the key-value data store.
	Put(key []byte, value []byte) error

	// Delete removes the key from the key-value data store.
	Delete(key []byte) error
}

// Iterator walks a sorted key range. Key and Value are only valid until the
// next call to Next; callers must copy what they keep.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// KeyValueStore is the full backend contract the state layer builds on.
type KeyValueStore interface {
	KeyValueReader
	KeyValueWriter

	// NewIterator creates an iterator over a subset of the store with a
	// particular key prefix.
	NewIterator(prefix []byte) Iterator

	// Close releases all backend resources.
	Close() error
}

// Supported backend engine names.
const (
	EngineMemory  = "memory"
	EngineLevelDB = "leveldb"
	EnginePebble  = "pebble"
)

// Open constructs the backend selected by engine name. The memory engine
// ignores dir; the persistent engines create it on demand.
func Open(engine string, dir string) (KeyValueStore, error) {
	switch engine {
	case EngineMemory, "":
		return NewMemoryStore(), nil
	case EngineLevelDB:
		return NewLevelDBStore(dir)
	case EnginePebble:
		return NewPebbleStore(dir)
	default:
		return nil, fmt.Errorf("unknown kvdb engine %q", engine)
	}
}

// upperBound returns the smallest key that is strictly greater than every key
// carrying the given prefix, or nil when no such key exists.
func upperBound(prefix []byte) []byte {
	var limit []byte
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c == 0xff {
			continue
		}
		limit = make([]byte, i+1)
		copy(limit, prefix)
		limit[i] = c + 1
		break
	}
	return limit
}
