package store

import (
	"bytes"

	"github.com/leengari/toonstored/internal/kverr"
)

// readChunkSize bounds a single read when scanning forward for the record
// terminator; records are capped at MaxValueSize so a handful of chunks is
// always enough.
const readChunkSize = 64 * 1024

// Get reads the record at rowID: the bytes from its stored offset up to,
// but not including, the next '\n'. It fails with NotFound if rowID is out
// of range or the row has been tombstoned.
func (s *Store) Get(rowID uint64) ([]byte, error) {
	s.mu.RLock()
	offset, err := s.liveOffset(rowID)
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return nil, kverr.ErrClosed
	}
	if err != nil {
		return nil, err
	}

	return s.readRecordAt(offset)
}

func (s *Store) liveOffset(rowID uint64) (uint64, error) {
	if rowID >= uint64(len(s.index)) {
		return 0, kverr.ErrNotFound
	}
	offset := s.index[rowID]
	if offset == tombstoneOffset {
		return 0, kverr.ErrNotFound
	}
	return offset, nil
}

// readRecordAt reads forward from offset until it finds the '\n'
// terminator, which is always present because every Put writes one
// immediately after the record bytes.
func (s *Store) readRecordAt(offset uint64) ([]byte, error) {
	var record bytes.Buffer
	chunk := make([]byte, readChunkSize)
	pos := int64(offset)

	for record.Len() <= MaxValueSize {
		n, err := s.dataFile.ReadAt(chunk, pos)
		if n > 0 {
			if idx := bytes.IndexByte(chunk[:n], '\n'); idx >= 0 {
				record.Write(chunk[:idx])
				return record.Bytes(), nil
			}
			record.Write(chunk[:n])
			pos += int64(n)
		}
		if err != nil {
			return nil, kverr.Wrap(kverr.KindIO, "read record", err)
		}
	}
	return nil, kverr.New(kverr.KindParse, "record missing terminator")
}
