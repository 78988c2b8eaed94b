package nodes

import (
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
)

// Cache keys. Both are read together and written together: the timestamp
// decides freshness, the data blob holds the serialized statistics.
const (
	cacheKeyFetch = "last_fetch"
	cacheKeyData  = "last_data"
)

// ErrNotFound is returned by Store.Get when a key has never been written.
var ErrNotFound = errors.New("cache: key not found")

// Store is the persisted key-value cache behind the fetch pipeline. It is an
// explicit dependency of the Service so tests can swap in MemStore.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Close() error
}

type levelStore struct {
	db *leveldb.DB
}

// OpenStore opens (or creates) the on-disk cache at path.
func OpenStore(path string) (Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &levelStore{db: db}, nil
}

func (s *levelStore) Get(key string) ([]byte, error) {
	v, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *levelStore) Put(key string, value []byte) error {
	return s.db.Put([]byte(key), value, nil)
}

func (s *levelStore) Close() error {
	return s.db.Close()
}

// MemStore is an in-memory Store for tests and cache-less runs.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (s *MemStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (s *MemStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemStore) Close() error { return nil }
