package directory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertGetRemove(t *testing.T) {
	d := New()
	d.Insert("foo", 5)

	rowID, ok := d.Get("foo")
	require.True(t, ok)
	assert.Equal(t, uint64(5), rowID)

	rowID, ok = d.Remove("foo")
	require.True(t, ok)
	assert.Equal(t, uint64(5), rowID)

	_, ok = d.Get("foo")
	assert.False(t, ok)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keymap.tsv")

	d := New()
	d.Insert("alpha", 1)
	d.Insert("beta", 2)
	require.NoError(t, d.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())

	rowID, ok := reloaded.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, uint64(1), rowID)
}

func TestLoadMissingFileYieldsEmptyDirectory(t *testing.T) {
	d, err := Load(filepath.Join(t.TempDir(), "does-not-exist.tsv"))
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keymap.tsv")
	require.NoError(t, os.WriteFile(path, []byte("good\t1\n\nbadline\nalso-good\t2\nnotanumber\tXYZ\n"), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())

	rowID, ok := d.Get("good")
	require.True(t, ok)
	assert.Equal(t, uint64(1), rowID)
}

func TestRebuildFromSelfDescribingJSON(t *testing.T) {
	records := map[uint64][]byte{
		0: []byte(`{"id":"user:1","name":"Alice"}`),
		1: []byte(`not json`),
		2: []byte(`{"id":"user:2"}`),
	}
	scan := func(fn func(rowID uint64, data []byte) error) error {
		for _, rowID := range []uint64{0, 1, 2} {
			if err := fn(rowID, records[rowID]); err != nil {
				return err
			}
		}
		return nil
	}

	d := New()
	require.NoError(t, d.Rebuild(scan))
	assert.Equal(t, 2, d.Len())

	rowID, ok := d.Get("user:1")
	require.True(t, ok)
	assert.Equal(t, uint64(0), rowID)
}

func TestClear(t *testing.T) {
	d := New()
	d.Insert("a", 1)
	d.Clear()
	assert.Equal(t, 0, d.Len())
}
