package store

import (
	"github.com/leengari/toonstored/internal/kverr"
)

// Put appends data followed by a single '\n' separator to the data file and
// returns the newly assigned row id. The append, offset bookkeeping, and
// row-id assignment happen under a single exclusive lock so that the id
// and its offset are published atomically to subsequent readers.
func (s *Store) Put(data []byte) (uint64, error) {
	if len(data) > MaxValueSize {
		return 0, kverr.New(kverr.KindValueTooLarge, "record exceeds maximum value size")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, kverr.ErrClosed
	}

	if s.size+uint64(len(data))+1 > MaxDataFileSize {
		return 0, kverr.New(kverr.KindDatabaseFull, "data file would exceed maximum size")
	}

	offset := s.size

	if _, err := s.dataFile.WriteAt(data, int64(offset)); err != nil {
		return 0, kverr.Wrap(kverr.KindIO, "write record", err)
	}
	if _, err := s.dataFile.WriteAt([]byte{'\n'}, int64(offset)+int64(len(data))); err != nil {
		return 0, kverr.Wrap(kverr.KindIO, "write record separator", err)
	}

	rowID := uint64(len(s.index))
	s.index = append(s.index, offset)
	s.size = offset + uint64(len(data)) + 1

	return rowID, nil
}
