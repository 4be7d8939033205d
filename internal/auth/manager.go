package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/natefinch/atomic"
)

// ErrUserExists is returned by CreateUser for a username already present.
var ErrUserExists = errors.New("auth: user already exists")

// ErrUserNotFound is returned by operations on an unknown username.
var ErrUserNotFound = errors.New("auth: user not found")

// ErrCannotDeleteAdmin is returned by DeleteUser("admin").
var ErrCannotDeleteAdmin = errors.New("auth: cannot delete admin user")

// Manager holds the multi-user account table backed by a JSON file on
// disk. Every mutating call rewrites the file in full under the table's
// write lock.
type Manager struct {
	mu    sync.RWMutex
	users map[string]User
	path  string
}

// NewManager loads users from path. If the file is missing or decodes to
// an empty set, a default admin/admin account is created, persisted, and a
// warning is logged -- the bootstrap behavior multi-user mode requires so
// the server is never unreachable on first start.
func NewManager(path string) (*Manager, error) {
	users, err := loadUsers(path)
	if err != nil {
		return nil, err
	}

	m := &Manager{users: users, path: path}

	if len(m.users) == 0 {
		if err := m.CreateUser("admin", "admin", Admin); err != nil {
			return nil, err
		}
		slog.Warn("no users found; created default admin account with password 'admin' -- change it immediately")
	}

	return m, nil
}

func loadUsers(path string) (map[string]User, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]User), nil
	}
	if err != nil {
		return nil, err
	}

	var list []User
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}

	users := make(map[string]User, len(list))
	for _, u := range list {
		users[u.Username] = u
	}
	return users, nil
}

func (m *Manager) saveLocked() error {
	list := make([]User, 0, len(m.users))
	for _, u := range m.users {
		list = append(list, u)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(m.path, bytes.NewReader(data))
}

// CreateUser adds a new account with the given role, persisting the user
// file. It fails with ErrUserExists if username is already registered.
func (m *Manager) CreateUser(username, password string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[username]; exists {
		return ErrUserExists
	}
	user, err := NewUser(username, password, role)
	if err != nil {
		return err
	}
	m.users[username] = user
	return m.saveLocked()
}

// Authenticate reports the User for username if it exists, is active, and
// password matches. It returns (User{}, false) otherwise -- including for
// an inactive account, so AUTH cannot be used to reactivate one.
func (m *Manager) Authenticate(username, password string) (User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[username]
	if !ok || !user.Active || !user.VerifyPassword(password) {
		return User{}, false
	}
	return user, true
}

// DeleteUser removes username, refusing to delete "admin".
func (m *Manager) DeleteUser(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if username == "admin" {
		return ErrCannotDeleteAdmin
	}
	if _, ok := m.users[username]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, username)
	return m.saveLocked()
}

// ListUsers returns every registered username, in no particular order.
func (m *Manager) ListUsers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.users))
	for name := range m.users {
		names = append(names, name)
	}
	return names
}

// SetPassword rehashes username's password and persists the change.
func (m *Manager) SetPassword(username, newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[username]
	if !ok {
		return ErrUserNotFound
	}
	rehashed, err := NewUser(username, newPassword, user.Role)
	if err != nil {
		return err
	}
	rehashed.Active = user.Active
	rehashed.Database = user.Database
	m.users[username] = rehashed
	return m.saveLocked()
}
