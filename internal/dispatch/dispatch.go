// Package dispatch routes parsed RESP commands to handlers, enforcing
// authentication and role gating ahead of every handler invocation and
// translating record-store/cache/directory results into protocol
// responses.
package dispatch

import (
	"strings"
	"time"

	"github.com/leengari/toonstored/internal/auth"
	"github.com/leengari/toonstored/internal/backup"
	"github.com/leengari/toonstored/internal/cachedstore"
	"github.com/leengari/toonstored/internal/directory"
	"github.com/leengari/toonstored/internal/resp"
)

// Version is the value reported by the INFO command.
const Version = "0.1.0"

// Dispatcher holds every collaborator a command handler may need: the
// cached record store, the key directory (and the path it persists to),
// optional single-password or multi-user authentication, the backup
// configuration, and a lifecycle observer.
type Dispatcher struct {
	Store   *cachedstore.Store
	Dir     *directory.Directory
	DirPath string

	AuthConfig *auth.Config  // nil when multi-user mode is active
	Users      *auth.Manager // nil when single-password (or no) auth is active

	Backup *backup.Config

	Observer Observer
}

// New constructs a Dispatcher. observer may be nil, in which case events
// are discarded.
func New(store *cachedstore.Store, dir *directory.Directory, dirPath string, authConfig *auth.Config, users *auth.Manager, bk *backup.Config, observer Observer) *Dispatcher {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Dispatcher{
		Store:      store,
		Dir:        dir,
		DirPath:    dirPath,
		AuthConfig: authConfig,
		Users:      users,
		Backup:     bk,
		Observer:   observer,
	}
}

// authRequired reports whether a session must successfully AUTH before
// running any other command.
func (d *Dispatcher) authRequired() bool {
	if d.Users != nil {
		return true
	}
	return d.AuthConfig != nil && d.AuthConfig.Required()
}

// AuthConfigRequired reports the same thing as authRequired, exported for
// the connection server to seed each new session's initial state.
func (d *Dispatcher) AuthConfigRequired() bool {
	return d.authRequired()
}

// Dispatch routes one parsed message through the gating order (AUTH
// bypass, NOAUTH, NOPERM, handler) and returns the protocol response,
// along with whether the connection should close after sending it (true
// only for QUIT).
func (d *Dispatcher) Dispatch(connID string, msg resp.Message, session *auth.Session) (resp.Message, bool) {
	args, command, ok := unpackCommand(msg)
	if !ok {
		return resp.NewError("ERR invalid command format"), false
	}

	d.Observer.OnEvent(Event{Type: EventDispatchStart, ConnID: connID, Command: command, Timestamp: now()})

	if command == "AUTH" {
		return d.handleAuth(args, session), false
	}

	if d.authRequired() && !session.Authenticated {
		d.Observer.OnEvent(Event{Type: EventAuthDenied, ConnID: connID, Command: command, Timestamp: now()})
		return resp.NewError("NOAUTH Authentication required"), false
	}

	if !session.Role.CanExecute(command) {
		d.Observer.OnEvent(Event{Type: EventPermDenied, ConnID: connID, Command: command, Timestamp: now()})
		return resp.NewError("NOPERM this user has no permissions to run the '" + strings.ToLower(command) + "' command"), false
	}

	d.Observer.OnEvent(Event{Type: EventHandlerStart, ConnID: connID, Command: command, Timestamp: now()})
	reply, quit := d.route(command, args, session)
	d.Observer.OnEvent(Event{Type: EventHandlerEnd, ConnID: connID, Command: command, Timestamp: now()})
	return reply, quit
}

var now = time.Now

// unpackCommand validates that msg is a non-empty array whose first
// element is a bulk string naming the command, and returns the remaining
// elements as args plus the upper-cased command name.
func unpackCommand(msg resp.Message) (args []resp.Message, command string, ok bool) {
	if msg.Type != resp.Array || msg.IsNull || len(msg.Array) == 0 {
		return nil, "", false
	}
	head := msg.Array[0]
	if head.Type != resp.BulkString || head.IsNull {
		return nil, "", false
	}
	return msg.Array[1:], strings.ToUpper(string(head.Bulk)), true
}

func (d *Dispatcher) route(command string, args []resp.Message, session *auth.Session) (resp.Message, bool) {
	switch command {
	case "PING":
		return d.handlePing(args), false
	case "ECHO":
		return d.handleEcho(args), false
	case "GET":
		return d.handleGet(args), false
	case "MGET":
		return d.handleMget(args), false
	case "SET":
		return d.handleSet(args), false
	case "DEL":
		return d.handleDel(args), false
	case "EXISTS":
		return d.handleExists(args), false
	case "KEYS":
		return d.handleKeys(args), false
	case "DBSIZE":
		return d.handleDbsize(), false
	case "FLUSHDB":
		return d.handleFlushdb(), false
	case "INFO":
		return d.handleInfo(), false
	case "COMMAND":
		return resp.NewArray([]resp.Message{}), false
	case "SAVE", "BGSAVE":
		return d.handleSave(), false
	case "BACKUP":
		return d.handleBackup(args), false
	case "RESTORE":
		return d.handleRestore(args), false
	case "LASTSAVE":
		return d.handleLastsave(), false
	case "USER":
		return d.handleUser(args, session), false
	case "QUIT":
		return resp.NewSimpleString("OK"), true
	default:
		return resp.NewError("ERR unknown command '" + command + "'"), false
	}
}

func bulkString(args []resp.Message, i int) (string, bool) {
	if i >= len(args) || args[i].Type != resp.BulkString || args[i].IsNull {
		return "", false
	}
	return string(args[i].Bulk), true
}

func wrongArgs(command string) resp.Message {
	return resp.NewError("ERR wrong number of arguments for '" + strings.ToLower(command) + "' command")
}
