package store

import "github.com/leengari/toonstored/internal/kverr"

// Delete tombstones rowID in the in-memory index. The record bytes remain
// in the data file until compaction, which is out of scope for this store.
func (s *Store) Delete(rowID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kverr.ErrClosed
	}
	if rowID >= uint64(len(s.index)) {
		return kverr.ErrNotFound
	}
	if s.index[rowID] == tombstoneOffset {
		return kverr.ErrNotFound
	}

	s.index[rowID] = tombstoneOffset
	return nil
}
