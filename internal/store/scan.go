package store

import "github.com/leengari/toonstored/internal/kverr"

// Scan visits every live row in ascending row-id order, calling fn with
// each row's id and bytes. It stops and returns fn's error if fn returns
// one.
func (s *Store) Scan(fn func(rowID uint64, data []byte) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return kverr.ErrClosed
	}
	offsets := make([]uint64, len(s.index))
	copy(offsets, s.index)
	s.mu.RUnlock()

	for rowID, offset := range offsets {
		if offset == tombstoneOffset {
			continue
		}
		data, err := s.readRecordAt(offset)
		if err != nil {
			return err
		}
		if err := fn(uint64(rowID), data); err != nil {
			return err
		}
	}
	return nil
}
