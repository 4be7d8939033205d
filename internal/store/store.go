package store

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/leengari/toonstored/internal/kverr"
)

// Store is the main database handle: a data file of raw record bytes and
// a side index file mapping row ids to byte offsets.
type Store struct {
	mu sync.RWMutex

	dataFile *os.File
	idxFile  *os.File

	// index[rowID] is the record's offset in dataFile, or tombstoneOffset
	// if the row has been deleted. Length equals the number of puts ever
	// issued (the "dense, monotonically increasing" row id space).
	index []uint64

	// size is the current length of the data file, including the header.
	size uint64

	closed bool
}

// Open opens or creates a store rooted at path. path is created if it does
// not exist. On reopen, the on-disk index's entry count is treated as
// authoritative even if the data header's row_count field lags behind it
// (the header is only ever rewritten by a clean Close; a crash between a
// write and a Close leaves it stale, and this design does not attempt to
// reconcile the two).
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, kverr.Wrap(kverr.KindIO, "create data directory", err)
	}

	dataPath := filepath.Join(path, "db.toon")
	idxPath := filepath.Join(path, "db.toon.idx")

	if _, err := os.Stat(dataPath); err == nil {
		return openExisting(dataPath, idxPath)
	} else if !os.IsNotExist(err) {
		return nil, kverr.Wrap(kverr.KindIO, "stat data file", err)
	}
	return createNew(dataPath, idxPath)
}

func createNew(dataPath, idxPath string) (*Store, error) {
	dataFile, err := os.OpenFile(dataPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, kverr.Wrap(kverr.KindIO, "create data file", err)
	}
	idxFile, err := os.OpenFile(idxPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		dataFile.Close()
		return nil, kverr.Wrap(kverr.KindIO, "create index file", err)
	}

	header := make([]byte, dataHeaderLen)
	copy(header, dataMagic)
	binary.LittleEndian.PutUint32(header[len(dataMagic):], formatVersion)
	binary.LittleEndian.PutUint32(header[len(dataMagic)+4:], 0)
	if _, err := dataFile.Write(header); err != nil {
		dataFile.Close()
		idxFile.Close()
		return nil, kverr.Wrap(kverr.KindIO, "write data header", err)
	}

	idxHeader := make([]byte, idxHeaderLen)
	copy(idxHeader, idxMagic)
	binary.LittleEndian.PutUint32(idxHeader[len(idxMagic):], 0)
	if _, err := idxFile.Write(idxHeader); err != nil {
		dataFile.Close()
		idxFile.Close()
		return nil, kverr.Wrap(kverr.KindIO, "write index header", err)
	}

	return &Store{
		dataFile: dataFile,
		idxFile:  idxFile,
		index:    nil,
		size:     uint64(len(header)),
	}, nil
}

func openExisting(dataPath, idxPath string) (*Store, error) {
	dataFile, err := os.OpenFile(dataPath, os.O_RDWR, 0o644)
	if err != nil {
		return nil, kverr.Wrap(kverr.KindIO, "open data file", err)
	}
	idxFile, err := os.OpenFile(idxPath, os.O_RDWR, 0o644)
	if err != nil {
		dataFile.Close()
		return nil, kverr.Wrap(kverr.KindIO, "open index file", err)
	}

	header := make([]byte, dataHeaderLen)
	if _, err := readFull(dataFile, header); err != nil {
		dataFile.Close()
		idxFile.Close()
		return nil, err
	}
	if string(header[:len(dataMagic)]) != dataMagic {
		dataFile.Close()
		idxFile.Close()
		return nil, kverr.New(kverr.KindParse, "invalid data file magic")
	}

	idxHeader := make([]byte, idxHeaderLen)
	if _, err := readFull(idxFile, idxHeader); err != nil {
		dataFile.Close()
		idxFile.Close()
		return nil, err
	}
	if string(idxHeader[:len(idxMagic)]) != idxMagic {
		dataFile.Close()
		idxFile.Close()
		return nil, kverr.New(kverr.KindParse, "invalid index file magic")
	}
	count := binary.LittleEndian.Uint32(idxHeader[len(idxMagic):])

	index := make([]uint64, count)
	offsetBuf := make([]byte, 8*count)
	if _, err := readFull(idxFile, offsetBuf); err != nil {
		dataFile.Close()
		idxFile.Close()
		return nil, kverr.Wrap(kverr.KindParse, "truncated index file", err)
	}
	for i := range index {
		index[i] = binary.LittleEndian.Uint64(offsetBuf[i*8 : i*8+8])
	}

	size, err := dataFile.Seek(0, io.SeekEnd)
	if err != nil {
		dataFile.Close()
		idxFile.Close()
		return nil, kverr.Wrap(kverr.KindIO, "seek data file", err)
	}

	return &Store{
		dataFile: dataFile,
		idxFile:  idxFile,
		index:    index,
		size:     uint64(size),
	}, nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := f.Read(buf[n:])
		n += m
		if err != nil {
			return n, kverr.Wrap(kverr.KindIO, "read", err)
		}
		if m == 0 {
			return n, kverr.New(kverr.KindParse, "unexpected end of file")
		}
	}
	return n, nil
}

// Len reports the number of row-id slots, including tombstones.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Close writes the row count into the data header at its fixed offset,
// rewrites the index file in full, and flushes both files durably. It is
// idempotent after the first successful call.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	rowCount := uint32(len(s.index))
	countBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBuf, rowCount)

	if _, err := s.dataFile.WriteAt(countBuf, int64(len(dataMagic)+4)); err != nil {
		return kverr.Wrap(kverr.KindIO, "write row count", err)
	}
	if err := s.dataFile.Sync(); err != nil {
		return kverr.Wrap(kverr.KindIO, "sync data file", err)
	}

	idxBuf := make([]byte, idxHeaderLen+8*len(s.index))
	copy(idxBuf, idxMagic)
	binary.LittleEndian.PutUint32(idxBuf[len(idxMagic):], rowCount)
	for i, off := range s.index {
		binary.LittleEndian.PutUint64(idxBuf[idxHeaderLen+i*8:], off)
	}
	if _, err := s.idxFile.WriteAt(idxBuf, 0); err != nil {
		return kverr.Wrap(kverr.KindIO, "write index file", err)
	}
	if err := s.idxFile.Sync(); err != nil {
		return kverr.Wrap(kverr.KindIO, "sync index file", err)
	}

	s.closed = true
	return nil
}
