package dispatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leengari/toonstored/internal/auth"
	"github.com/leengari/toonstored/internal/cachedstore"
	"github.com/leengari/toonstored/internal/directory"
	"github.com/leengari/toonstored/internal/resp"
)

func newTestDispatcher(t *testing.T, authConfig *auth.Config) *Dispatcher {
	t.Helper()
	dir, err := os.MkdirTemp("", "toonstore-dispatch")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := cachedstore.Open(dir, 100)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	dirPath := filepath.Join(dir, "directory.tsv")
	d := directory.New()

	return New(store, d, dirPath, authConfig, nil, nil, nil)
}

func cmd(parts ...string) resp.Message {
	elems := make([]resp.Message, len(parts))
	for i, p := range parts {
		elems[i] = resp.NewBulkString([]byte(p))
	}
	return resp.NewArray(elems)
}

func TestSetThenGetRoundTrip(t *testing.T) {
	d := newTestDispatcher(t, auth.Disabled())
	session := auth.NewSession(false)

	reply, quit := d.Dispatch("c1", cmd("SET", "name", "toon"), session)
	assert.False(t, quit)
	assert.Equal(t, resp.SimpleString, reply.Type)
	assert.Equal(t, "OK", reply.Str)

	reply, _ = d.Dispatch("c1", cmd("GET", "name"), session)
	assert.Equal(t, resp.BulkString, reply.Type)
	assert.Equal(t, "toon", string(reply.Bulk))

	// persisted after the command, not only in memory
	data, err := os.ReadFile(d.DirPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name\t")
}

func TestGetMissingKeyReturnsNullBulk(t *testing.T) {
	d := newTestDispatcher(t, auth.Disabled())
	session := auth.NewSession(false)

	reply, _ := d.Dispatch("c1", cmd("GET", "nope"), session)
	assert.Equal(t, resp.BulkString, reply.Type)
	assert.True(t, reply.IsNull)
}

func TestDelCountsOnlyExistingKeys(t *testing.T) {
	d := newTestDispatcher(t, auth.Disabled())
	session := auth.NewSession(false)

	d.Dispatch("c1", cmd("SET", "a", "1"), session)
	d.Dispatch("c1", cmd("SET", "b", "2"), session)

	reply, _ := d.Dispatch("c1", cmd("DEL", "a", "b", "missing"), session)
	require.Equal(t, resp.Integer, reply.Type)
	assert.Equal(t, int64(2), reply.Int)

	reply, _ = d.Dispatch("c1", cmd("EXISTS", "a", "b"), session)
	assert.Equal(t, int64(0), reply.Int)
}

func TestKeysFiltersByGlobPattern(t *testing.T) {
	d := newTestDispatcher(t, auth.Disabled())
	session := auth.NewSession(false)

	d.Dispatch("c1", cmd("SET", "user:1", "a"), session)
	d.Dispatch("c1", cmd("SET", "user:2", "b"), session)
	d.Dispatch("c1", cmd("SET", "order:1", "c"), session)

	reply, _ := d.Dispatch("c1", cmd("KEYS", "user:*"), session)
	require.Equal(t, resp.Array, reply.Type)
	assert.Len(t, reply.Array, 2)
}

func TestUnauthenticatedSessionGetsNoAuthExceptForAuth(t *testing.T) {
	cfg, err := auth.FromPassword("secret")
	require.NoError(t, err)
	d := newTestDispatcher(t, cfg)
	session := auth.NewSession(true)

	reply, _ := d.Dispatch("c1", cmd("GET", "x"), session)
	require.Equal(t, resp.Error, reply.Type)
	assert.Contains(t, reply.Str, "NOAUTH")

	reply, _ = d.Dispatch("c1", cmd("AUTH", "wrong"), session)
	assert.Contains(t, reply.Str, "WRONGPASS")
	assert.False(t, session.Authenticated)

	reply, _ = d.Dispatch("c1", cmd("AUTH", "secret"), session)
	assert.Equal(t, "OK", reply.Str)
	assert.True(t, session.Authenticated)

	reply, _ = d.Dispatch("c1", cmd("GET", "x"), session)
	assert.Equal(t, resp.BulkString, reply.Type)
}

func TestReadOnlyRoleIsDeniedWrites(t *testing.T) {
	d := newTestDispatcher(t, auth.Disabled())
	session := auth.NewSession(false)
	session.Authenticate("viewer", auth.ReadOnly)

	reply, _ := d.Dispatch("c1", cmd("GET", "x"), session)
	assert.NotContains(t, reply.Str, "NOPERM")

	reply, _ = d.Dispatch("c1", cmd("SET", "x", "1"), session)
	require.Equal(t, resp.Error, reply.Type)
	assert.Contains(t, reply.Str, "NOPERM")
}

func TestReadWriteRoleIsDeniedFlushdb(t *testing.T) {
	d := newTestDispatcher(t, auth.Disabled())
	session := auth.NewSession(false)
	session.Authenticate("writer", auth.ReadWrite)

	reply, _ := d.Dispatch("c1", cmd("SET", "x", "1"), session)
	assert.Equal(t, "OK", reply.Str)

	reply, _ = d.Dispatch("c1", cmd("FLUSHDB"), session)
	require.Equal(t, resp.Error, reply.Type)
	assert.Contains(t, reply.Str, "NOPERM")
}

func TestQuitSignalsConnectionClose(t *testing.T) {
	d := newTestDispatcher(t, auth.Disabled())
	session := auth.NewSession(false)

	reply, quit := d.Dispatch("c1", cmd("QUIT"), session)
	assert.Equal(t, "OK", reply.Str)
	assert.True(t, quit)
}

func TestUnknownCommandReturnsError(t *testing.T) {
	d := newTestDispatcher(t, auth.Disabled())
	session := auth.NewSession(false)

	reply, _ := d.Dispatch("c1", cmd("BOGUS"), session)
	assert.Equal(t, resp.Error, reply.Type)
}

func TestMatchPattern(t *testing.T) {
	assert.True(t, matchPattern("*", ""))
	assert.True(t, matchPattern("user:*", "user:42"))
	assert.False(t, matchPattern("user:*", "order:42"))
	assert.True(t, matchPattern("a?c", "abc"))
	assert.False(t, matchPattern("a?c", "ac"))
	assert.True(t, matchPattern("exact", "exact"))
}
