// Package cachedstore composes the record store with an LRU lookaside:
// writes go through to the store and populate the cache; reads check the
// cache first and fall back to the store on a miss.
package cachedstore

import (
	"github.com/leengari/toonstored/internal/cache"
	"github.com/leengari/toonstored/internal/store"
)

// Store is a record store fronted by a bounded LRU cache keyed by row id.
type Store struct {
	store *store.Store
	cache *cache.Cache[uint64, []byte]
	stats stats
}

// Open opens the record store at path and wraps it with an LRU cache of
// the given capacity.
func Open(path string, capacity int) (*Store, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	c, err := cache.New[uint64, []byte](capacity)
	if err != nil {
		s.Close()
		return nil, err
	}
	return &Store{store: s, cache: c}, nil
}

// Put appends data to the underlying store and inserts it into the cache
// under the newly assigned row id.
func (cs *Store) Put(data []byte) (uint64, error) {
	rowID, err := cs.store.Put(data)
	if err != nil {
		return 0, err
	}
	cached := make([]byte, len(data))
	copy(cached, data)
	if _, _, evicted := cs.cache.Put(rowID, cached); evicted {
		cs.stats.evictions.Add(1)
	}
	cs.stats.inserts.Add(1)
	return rowID, nil
}

// Get returns the bytes for rowID, preferring the cache and falling back
// to the store on a miss. A store hit repopulates the cache.
func (cs *Store) Get(rowID uint64) ([]byte, error) {
	if data, ok := cs.cache.Get(rowID); ok {
		cs.stats.hits.Add(1)
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	cs.stats.misses.Add(1)

	data, err := cs.store.Get(rowID)
	if err != nil {
		return nil, err
	}
	cached := make([]byte, len(data))
	copy(cached, data)
	if _, _, evicted := cs.cache.Put(rowID, cached); evicted {
		cs.stats.evictions.Add(1)
	}
	return data, nil
}

// Delete removes rowID from the cache and tombstones it in the store.
func (cs *Store) Delete(rowID uint64) error {
	cs.cache.Remove(rowID)
	return cs.store.Delete(rowID)
}

// Scan visits every live row directly from the store, bypassing the cache.
func (cs *Store) Scan(fn func(rowID uint64, data []byte) error) error {
	return cs.store.Scan(fn)
}

// Len reports the number of row-id slots in the underlying store,
// including tombstones.
func (cs *Store) Len() int {
	return cs.store.Len()
}

// CacheLen reports the number of entries currently cached.
func (cs *Store) CacheLen() int {
	return cs.cache.Len()
}

// CacheCapacity reports the cache's fixed capacity.
func (cs *Store) CacheCapacity() int {
	return cs.cache.Capacity()
}

// Stats returns a point-in-time snapshot of the cache's hit/miss/insert/
// eviction counters.
func (cs *Store) Stats() Stats {
	return cs.stats.snapshot()
}

// ClearCache empties the LRU cache without touching the underlying store.
func (cs *Store) ClearCache() {
	cs.cache.Clear()
}

// Close closes the underlying store, flushing its index durably.
func (cs *Store) Close() error {
	return cs.store.Close()
}
