// Package directory implements the persistent string-key to row-id
// mapping the protocol front end uses to translate Redis-style keys into
// record-store row ids. The directory is a plain in-memory map guarded by
// a reader-writer lock, loaded from and saved to a tab-separated text file.
package directory

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
)

// Directory maps UTF-8 string keys to row ids.
type Directory struct {
	mu      sync.RWMutex
	entries map[string]uint64

	// saveMu serializes Save calls: concurrent readers of the map may
	// proceed while a save is in flight, but two saves never interleave.
	saveMu sync.Mutex
}

// New returns an empty Directory.
func New() *Directory {
	return &Directory{entries: make(map[string]uint64)}
}

// Load parses the tab-separated directory file at path, if it exists.
// Blank or malformed lines are skipped silently. A missing file yields an
// empty Directory rather than an error.
func Load(path string) (*Directory, error) {
	d := New()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return d, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		key, rowIDStr, found := strings.Cut(line, "\t")
		if !found {
			continue
		}
		rowID, err := strconv.ParseUint(rowIDStr, 10, 64)
		if err != nil {
			continue
		}
		d.entries[key] = rowID
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// Save atomically rewrites path with the directory's current contents:
// one `key<TAB>rowid\n` line per entry, truncate + write-all + durable
// flush, via a temp-file-and-rename so a concurrent reader never observes
// a partial file.
func (d *Directory) Save(path string) error {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()

	d.mu.RLock()
	defer d.mu.RUnlock()

	var buf bytes.Buffer
	for key, rowID := range d.entries {
		buf.WriteString(key)
		buf.WriteByte('\t')
		buf.WriteString(strconv.FormatUint(rowID, 10))
		buf.WriteByte('\n')
	}
	return atomic.WriteFile(path, &buf)
}

// Get reports the row id mapped to key, if any.
func (d *Directory) Get(key string) (uint64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rowID, ok := d.entries[key]
	return rowID, ok
}

// Insert maps key to rowID, overwriting any previous mapping.
func (d *Directory) Insert(key string, rowID uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[key] = rowID
}

// Remove deletes key's mapping, reporting its prior row id if present.
func (d *Directory) Remove(key string) (uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rowID, ok := d.entries[key]
	if ok {
		delete(d.entries, key)
	}
	return rowID, ok
}

// Keys returns every key currently mapped, in no particular order.
func (d *Directory) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len reports the number of mapped keys.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Clear empties the directory.
func (d *Directory) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = make(map[string]uint64)
}

// jsonIDRecord matches the shape of a self-describing JSON record: a
// top-level object with a string "id" field. Other fields are ignored.
type jsonIDRecord struct {
	ID string `json:"id"`
}

// Rebuild scans the record store via scan and, for every record whose
// bytes parse as a JSON object with a top-level string "id" field, inserts
// (id, rowID). This is a best-effort recovery path for a lost directory
// file; it is not a general-purpose index and yields an empty directory
// for records that are not self-describing JSON.
func (d *Directory) Rebuild(scan func(fn func(rowID uint64, data []byte) error) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries = make(map[string]uint64)
	return scan(func(rowID uint64, data []byte) error {
		var rec jsonIDRecord
		if err := json.Unmarshal(data, &rec); err != nil || rec.ID == "" {
			return nil
		}
		d.entries[rec.ID] = rowID
		return nil
	})
}
