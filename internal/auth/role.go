package auth

import "strings"

// Role is a session's fixed command-execution permission tier. It is
// modeled as a tagged variant with a single CanExecute predicate rather
// than a dynamic-dispatch ladder, per the role-gating design.
type Role int

const (
	// Admin may execute every command.
	Admin Role = iota
	// ReadWrite may execute every command except database-wide and
	// user-management operations.
	ReadWrite
	// ReadOnly may execute only the fixed read-only command set.
	ReadOnly
)

func (r Role) String() string {
	switch r {
	case Admin:
		return "Admin"
	case ReadWrite:
		return "ReadWrite"
	case ReadOnly:
		return "ReadOnly"
	default:
		return "Unknown"
	}
}

// ParseRole parses a role name, defaulting to ReadWrite for anything that
// is not an exact (case-insensitive) match for a known role name -- the
// same default USER CREATE applies when its role argument is omitted.
func ParseRole(s string) Role {
	switch strings.ToUpper(s) {
	case "ADMIN":
		return Admin
	case "READONLY":
		return ReadOnly
	case "READWRITE":
		return ReadWrite
	default:
		return ReadWrite
	}
}

var readOnlyCommands = map[string]bool{
	"GET": true, "MGET": true, "EXISTS": true, "KEYS": true,
	"DBSIZE": true, "INFO": true, "PING": true, "ECHO": true,
}

var readWriteForbidden = map[string]bool{
	"FLUSHDB": true, "FLUSHALL": true, "USER": true, "ACL": true, "CONFIG": true,
}

// CanExecute reports whether r's role is permitted to run command (an
// upper-cased command name).
func (r Role) CanExecute(command string) bool {
	switch r {
	case Admin:
		return true
	case ReadWrite:
		return !readWriteForbidden[command]
	case ReadOnly:
		return readOnlyCommands[command]
	default:
		return false
	}
}
