package dispatch

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/leengari/toonstored/internal/auth"
	"github.com/leengari/toonstored/internal/kverr"
	"github.com/leengari/toonstored/internal/resp"
)

func (d *Dispatcher) handlePing(args []resp.Message) resp.Message {
	switch len(args) {
	case 0:
		return resp.NewSimpleString("PONG")
	case 1:
		msg, ok := bulkString(args, 0)
		if !ok {
			return wrongArgs("PING")
		}
		return resp.NewBulkString([]byte(msg))
	default:
		return wrongArgs("PING")
	}
}

func (d *Dispatcher) handleEcho(args []resp.Message) resp.Message {
	msg, ok := bulkString(args, 0)
	if len(args) != 1 || !ok {
		return wrongArgs("ECHO")
	}
	return resp.NewBulkString([]byte(msg))
}

// getValue looks up key in the directory and, if mapped, reads its bytes
// through the cache. A key absent from the directory, or mapped to a
// tombstoned row, both report "no value" -- the directory is kept
// consistent with the store by SET/DEL, so the tombstone case should not
// arise in practice, but GET tolerates it rather than surfacing an error.
func (d *Dispatcher) getValue(key string) ([]byte, bool, error) {
	rowID, ok := d.Dir.Get(key)
	if !ok {
		return nil, false, nil
	}
	data, err := d.Store.Get(rowID)
	if err != nil {
		if errors.Is(err, kverr.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (d *Dispatcher) handleGet(args []resp.Message) resp.Message {
	key, ok := bulkString(args, 0)
	if len(args) != 1 || !ok {
		return wrongArgs("GET")
	}
	data, found, err := d.getValue(key)
	if err != nil {
		return resp.NewError("ERR " + err.Error())
	}
	if !found {
		return resp.NewNullBulkString()
	}
	return resp.NewBulkString(data)
}

func (d *Dispatcher) handleMget(args []resp.Message) resp.Message {
	if len(args) == 0 {
		return wrongArgs("MGET")
	}
	out := make([]resp.Message, 0, len(args))
	for i := range args {
		key, ok := bulkString(args, i)
		if !ok {
			return wrongArgs("MGET")
		}
		data, found, err := d.getValue(key)
		if err != nil {
			return resp.NewError("ERR " + err.Error())
		}
		if !found {
			out = append(out, resp.NewNullBulkString())
			continue
		}
		out = append(out, resp.NewBulkString(data))
	}
	return resp.NewArray(out)
}

func (d *Dispatcher) handleSet(args []resp.Message) resp.Message {
	if len(args) != 2 {
		return wrongArgs("SET")
	}
	key, ok1 := bulkString(args, 0)
	value, ok2 := bulkString(args, 1)
	if !ok1 || !ok2 {
		return wrongArgs("SET")
	}

	if oldRowID, existed := d.Dir.Get(key); existed {
		if err := d.Store.Delete(oldRowID); err != nil && !errors.Is(err, kverr.ErrNotFound) {
			return resp.NewError("ERR " + err.Error())
		}
	}

	rowID, err := d.Store.Put([]byte(value))
	if err != nil {
		return resp.NewError("ERR " + err.Error())
	}
	d.Dir.Insert(key, rowID)

	if err := d.Dir.Save(d.DirPath); err != nil {
		return resp.NewError("ERR persist directory: " + err.Error())
	}
	return resp.NewSimpleString("OK")
}

func (d *Dispatcher) handleDel(args []resp.Message) resp.Message {
	if len(args) == 0 {
		return wrongArgs("DEL")
	}
	var deleted int64
	for i := range args {
		key, ok := bulkString(args, i)
		if !ok {
			return wrongArgs("DEL")
		}
		rowID, existed := d.Dir.Get(key)
		if !existed {
			continue
		}
		switch err := d.Store.Delete(rowID); {
		case err == nil:
			deleted++
		case errors.Is(err, kverr.ErrNotFound):
			// Stale mapping to an already-tombstoned row. SET and DEL keep
			// the directory consistent with the store, so this should not
			// arise; drop the entry but count only rows that were live.
		default:
			return resp.NewError("ERR " + err.Error())
		}
		d.Dir.Remove(key)
	}
	if deleted > 0 {
		if err := d.Dir.Save(d.DirPath); err != nil {
			return resp.NewError("ERR persist directory: " + err.Error())
		}
	}
	return resp.NewInteger(deleted)
}

func (d *Dispatcher) handleExists(args []resp.Message) resp.Message {
	if len(args) == 0 {
		return wrongArgs("EXISTS")
	}
	var count int64
	for i := range args {
		key, ok := bulkString(args, i)
		if !ok {
			return wrongArgs("EXISTS")
		}
		if _, found := d.Dir.Get(key); found {
			count++
		}
	}
	return resp.NewInteger(count)
}

func (d *Dispatcher) handleKeys(args []resp.Message) resp.Message {
	pattern, ok := bulkString(args, 0)
	if len(args) != 1 || !ok {
		return wrongArgs("KEYS")
	}
	keys := d.Dir.Keys()
	matched := make([]resp.Message, 0, len(keys))
	for _, k := range keys {
		if matchPattern(pattern, k) {
			matched = append(matched, resp.NewBulkString([]byte(k)))
		}
	}
	return resp.NewArray(matched)
}

func (d *Dispatcher) handleDbsize() resp.Message {
	return resp.NewInteger(int64(d.Dir.Len()))
}

func (d *Dispatcher) handleFlushdb() resp.Message {
	d.Dir.Clear()
	d.Store.ClearCache()
	if err := d.Dir.Save(d.DirPath); err != nil {
		return resp.NewError("ERR persist directory: " + err.Error())
	}
	return resp.NewSimpleString("OK")
}

func (d *Dispatcher) handleInfo() resp.Message {
	stats := d.Store.Stats()
	info := fmt.Sprintf(
		"version:%s\r\nkeys:%d\r\ncache_size:%d\r\ncache_capacity:%d\r\ncache_hits:%d\r\ncache_misses:%d\r\ncache_hit_ratio:%.4f\r\n",
		Version, d.Dir.Len(), d.Store.CacheLen(), d.Store.CacheCapacity(), stats.Hits, stats.Misses, stats.HitRatio(),
	)
	return resp.NewBulkString([]byte(info))
}

func (d *Dispatcher) handleSave() resp.Message {
	if d.Backup == nil {
		return resp.NewError("ERR backups are not configured")
	}
	if _, err := d.Backup.Create("manual"); err != nil {
		return resp.NewError("ERR " + err.Error())
	}
	return resp.NewSimpleString("OK")
}

func (d *Dispatcher) handleBackup(args []resp.Message) resp.Message {
	if d.Backup == nil {
		return resp.NewError("ERR backups are not configured")
	}
	name := "backup"
	if len(args) == 1 {
		n, ok := bulkString(args, 0)
		if !ok {
			return wrongArgs("BACKUP")
		}
		name = n
	} else if len(args) > 1 {
		return wrongArgs("BACKUP")
	}
	path, err := d.Backup.Create(name)
	if err != nil {
		return resp.NewError("ERR " + err.Error())
	}
	return resp.NewBulkString([]byte(filepath.Base(path)))
}

func (d *Dispatcher) handleRestore(args []resp.Message) resp.Message {
	if d.Backup == nil {
		return resp.NewError("ERR backups are not configured")
	}
	filename, ok := bulkString(args, 0)
	if len(args) != 1 || !ok {
		return wrongArgs("RESTORE")
	}
	if err := d.Backup.Restore(filename); err != nil {
		return resp.NewError("ERR " + err.Error())
	}
	return resp.NewSimpleString("OK")
}

func (d *Dispatcher) handleLastsave() resp.Message {
	if d.Backup == nil {
		return resp.NewArray(nil)
	}
	backups, err := d.Backup.List()
	if err != nil {
		return resp.NewError("ERR " + err.Error())
	}
	if len(backups) > 10 {
		backups = backups[:10]
	}
	out := make([]resp.Message, 0, len(backups))
	for _, b := range backups {
		out = append(out, resp.NewBulkString([]byte(b.Filename)))
	}
	return resp.NewArray(out)
}

func (d *Dispatcher) handleAuth(args []resp.Message, session *auth.Session) resp.Message {
	if d.Users != nil {
		var username, password string
		switch len(args) {
		case 1:
			username = "admin"
			pw, ok := bulkString(args, 0)
			if !ok {
				return wrongArgs("AUTH")
			}
			password = pw
		case 2:
			u, ok1 := bulkString(args, 0)
			p, ok2 := bulkString(args, 1)
			if !ok1 || !ok2 {
				return wrongArgs("AUTH")
			}
			username, password = u, p
		default:
			return wrongArgs("AUTH")
		}
		user, ok := d.Users.Authenticate(username, password)
		if !ok {
			return resp.NewError("WRONGPASS invalid username-password pair")
		}
		session.Authenticate(user.Username, user.Role)
		return resp.NewSimpleString("OK")
	}

	password, ok := bulkString(args, 0)
	if len(args) != 1 || !ok {
		return wrongArgs("AUTH")
	}
	if d.AuthConfig == nil || !d.AuthConfig.Verify(password) {
		return resp.NewError("WRONGPASS invalid password")
	}
	session.Authenticate("default", auth.Admin)
	return resp.NewSimpleString("OK")
}

func (d *Dispatcher) handleUser(args []resp.Message, session *auth.Session) resp.Message {
	if d.Users == nil {
		return resp.NewError("ERR multi-user mode is not enabled")
	}
	if len(args) == 0 {
		return wrongArgs("USER")
	}
	sub, ok := bulkString(args, 0)
	if !ok {
		return wrongArgs("USER")
	}
	rest := args[1:]

	switch sub := upperASCII(sub); sub {
	case "CREATE":
		if len(rest) < 2 || len(rest) > 3 {
			return wrongArgs("USER CREATE")
		}
		username, ok1 := bulkString(rest, 0)
		password, ok2 := bulkString(rest, 1)
		if !ok1 || !ok2 {
			return wrongArgs("USER CREATE")
		}
		role := auth.ReadWrite
		if len(rest) == 3 {
			roleStr, ok := bulkString(rest, 2)
			if !ok {
				return wrongArgs("USER CREATE")
			}
			role = auth.ParseRole(roleStr)
		}
		if err := d.Users.CreateUser(username, password, role); err != nil {
			return resp.NewError("ERR " + err.Error())
		}
		return resp.NewSimpleString("OK")

	case "DELETE":
		username, ok := bulkString(rest, 0)
		if len(rest) != 1 || !ok {
			return wrongArgs("USER DELETE")
		}
		if err := d.Users.DeleteUser(username); err != nil {
			return resp.NewError("ERR " + err.Error())
		}
		return resp.NewSimpleString("OK")

	case "LIST":
		if len(rest) != 0 {
			return wrongArgs("USER LIST")
		}
		names := d.Users.ListUsers()
		sort.Strings(names)
		out := make([]resp.Message, 0, len(names))
		for _, n := range names {
			out = append(out, resp.NewBulkString([]byte(n)))
		}
		return resp.NewArray(out)

	case "SETPASS":
		username, ok1 := bulkString(rest, 0)
		newPassword, ok2 := bulkString(rest, 1)
		if len(rest) != 2 || !ok1 || !ok2 {
			return wrongArgs("USER SETPASS")
		}
		if err := d.Users.SetPassword(username, newPassword); err != nil {
			return resp.NewError("ERR " + err.Error())
		}
		return resp.NewSimpleString("OK")

	case "WHOAMI":
		if len(rest) != 0 {
			return wrongArgs("USER WHOAMI")
		}
		if !session.Authenticated || session.Username == "" {
			return resp.NewBulkString([]byte("anonymous"))
		}
		return resp.NewBulkString([]byte(session.Username))

	default:
		return resp.NewError("ERR unknown USER subcommand '" + sub + "'")
	}
}

func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
