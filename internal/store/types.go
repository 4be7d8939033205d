// Package store implements the append-only on-disk record store: it
// assigns dense, monotonically increasing row ids, persists raw record
// bytes, tolerates soft-deletes via a side index, and survives crashes
// with a durable offset index written at close.
package store

// File layout:
//   - "db.toon": data file, header + records separated by '\n'.
//   - "db.toon.idx": index file, row id -> absolute offset in the data file.

const (
	dataMagic = "TOON001\n"
	idxMagic  = "TOONIDX1"

	dataHeaderLen = len(dataMagic) + 4 + 4 // magic + version + row_count
	idxHeaderLen  = len(idxMagic) + 4      // magic + count

	formatVersion = uint32(1)

	// MaxValueSize is the largest record the store will accept.
	MaxValueSize = 1 * 1024 * 1024
	// MaxDataFileSize is the largest the data file is allowed to grow to.
	MaxDataFileSize = 1 * 1024 * 1024 * 1024

	// tombstoneOffset is the sentinel stored for a deleted row. It is safe
	// to reuse offset 0 because the data file's first byte is always the
	// header magic, never a record.
	tombstoneOffset = 0
)
