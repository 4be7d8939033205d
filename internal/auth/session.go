package auth

// Session holds per-connection authentication state. A Session is never
// shared between connections.
type Session struct {
	Authenticated bool
	Username      string
	Role          Role
}

// NewSession returns a Session whose initial Authenticated value is true
// iff authRequired is false -- a connection needs no AUTH at all when the
// server was not configured to require one.
func NewSession(authRequired bool) *Session {
	return &Session{Authenticated: !authRequired}
}

// Authenticate transitions the session to authenticated under the given
// identity. There is no reverse transition short of closing the connection.
func (s *Session) Authenticate(username string, role Role) {
	s.Authenticated = true
	s.Username = username
	s.Role = role
}
