package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndRestoreRoundTrip(t *testing.T) {
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	backupDir := filepath.Join(root, "backups")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "db.toon"), []byte("original"), 0o644))

	cfg := New(dataDir, backupDir)

	archivePath, err := cfg.Create("test")
	require.NoError(t, err)
	assert.FileExists(t, archivePath)

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "db.toon"), []byte("modified"), 0o644))

	filename := filepath.Base(archivePath)
	require.NoError(t, cfg.Restore(filename))

	restored, err := os.ReadFile(filepath.Join(dataDir, "db.toon"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(restored))

	oldBackup, err := os.ReadFile(filepath.Join(dataDir, ".old_backup", "db.toon"))
	require.NoError(t, err)
	assert.Equal(t, "modified", string(oldBackup))
}

func TestRestoreRejectsAbsolutePath(t *testing.T) {
	root := t.TempDir()
	cfg := New(filepath.Join(root, "data"), filepath.Join(root, "backups"))
	err := cfg.Restore("/etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relative")
}

func TestRestoreRejectsParentTraversal(t *testing.T) {
	root := t.TempDir()
	cfg := New(filepath.Join(root, "data"), filepath.Join(root, "backups"))
	err := cfg.Restore("../../etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "..")
}

func TestListBackupsNewestFirst(t *testing.T) {
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	backupDir := filepath.Join(root, "backups")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "f"), []byte("x"), 0o644))

	cfg := New(dataDir, backupDir)

	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	_, err := cfg.Create("one")
	require.NoError(t, err)

	now = func() time.Time { return fixed.Add(time.Minute) }
	_, err = cfg.Create("two")
	require.NoError(t, err)
	now = time.Now

	backups, err := cfg.List()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Contains(t, backups[0].Filename, "two")
}

func TestCleanupKeepsOnlyMostRecent(t *testing.T) {
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	backupDir := filepath.Join(root, "backups")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "f"), []byte("x"), 0o644))

	cfg := New(dataDir, backupDir)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		stamp := fixed.Add(time.Duration(i) * time.Minute)
		now = func() time.Time { return stamp }
		_, err := cfg.Create("n")
		require.NoError(t, err)
	}
	now = time.Now

	deleted, err := cfg.Cleanup(1)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	backups, err := cfg.List()
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}
