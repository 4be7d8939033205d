package store

import (
	"errors"
	"os"
	"testing"

	"github.com/leengari/toonstored/internal/kverr"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "toonstore-store")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func TestAppendAndRead(t *testing.T) {
	s := tempStore(t)

	id0, err := s.Put([]byte("users[1]{id,name}: 1,Alice"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if id0 != 0 {
		t.Fatalf("expected row id 0, got %d", id0)
	}

	id1, err := s.Put([]byte("users[1]{id,name}: 2,Bob"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if id1 != 1 {
		t.Fatalf("expected row id 1, got %d", id1)
	}

	got, err := s.Get(0)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "users[1]{id,name}: 1,Alice" {
		t.Fatalf("unexpected record bytes: %q", got)
	}

	if s.Len() != 2 {
		t.Fatalf("expected len 2, got %d", s.Len())
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir, err := os.MkdirTemp("", "toonstore-persist")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.Put([]byte("test line 1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := s.Put([]byte("test line 2")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.Len() != 2 {
		t.Fatalf("expected len 2 after reopen, got %d", reopened.Len())
	}
	got1, err := reopened.Get(1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got1) != "test line 2" {
		t.Fatalf("unexpected record bytes: %q", got1)
	}
}

func TestTombstone(t *testing.T) {
	s := tempStore(t)

	if _, err := s.Put([]byte("a")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := s.Put([]byte("b")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := s.Put([]byte("c")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := s.Delete(1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := s.Get(1)
	if !errors.Is(err, kverr.ErrNotFound) {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}

	var got [][]byte
	var ids []uint64
	err = s.Scan(func(rowID uint64, data []byte) error {
		ids = append(ids, rowID)
		got = append(got, data)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != 0 || ids[1] != 2 {
		t.Fatalf("unexpected scan row ids: %v", ids)
	}
	if string(got[0]) != "a" || string(got[1]) != "c" {
		t.Fatalf("unexpected scan contents: %q", got)
	}
}

func TestTombstoneSurvivesReopen(t *testing.T) {
	dir, err := os.MkdirTemp("", "toonstore-tombstone-reopen")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Put([]byte("a"))
	s.Put([]byte("b"))
	s.Put([]byte("c"))
	if err := s.Delete(1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if _, err := reopened.Get(1); !errors.Is(err, kverr.ErrNotFound) {
		t.Fatalf("expected NotFound for tombstoned row after reopen, got %v", err)
	}
	if got, err := reopened.Get(2); err != nil || string(got) != "c" {
		t.Fatalf("expected row 2 = c, got %q err=%v", got, err)
	}
}

func TestGetNotFound(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Get(0); !errors.Is(err, kverr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestValueTooLarge(t *testing.T) {
	s := tempStore(t)
	large := make([]byte, MaxValueSize+1)
	_, err := s.Put(large)
	kind, ok := kverr.KindOf(err)
	if !ok || kind != kverr.KindValueTooLarge {
		t.Fatalf("expected ValueTooLarge, got %v", err)
	}
}

func TestPutAfterClose(t *testing.T) {
	s := tempStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	_, err := s.Put([]byte("test"))
	if !errors.Is(err, kverr.ErrClosed) {
		t.Fatalf("expected Closed, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := tempStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close should not error, got %v", err)
	}
}
