package auth

import (
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Config is single-password authentication mode: one bcrypt hash checked
// by the one-argument form of AUTH. A successful verify authenticates the
// session as username "default" with Role Admin.
type Config struct {
	passwordHash []byte
	required     bool
}

// Disabled returns a Config with authentication turned off; every AUTH
// call verifies successfully.
func Disabled() *Config {
	return &Config{required: false}
}

// FromPassword hashes password and returns a Config requiring it. An empty
// password disables authentication, matching the original's behavior of
// treating "no password supplied" and "empty password" identically.
func FromPassword(password string) (*Config, error) {
	if password == "" {
		return Disabled(), nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Config{passwordHash: hash, required: true}, nil
}

// FromPasswordFile reads an already-computed bcrypt hash from path and
// returns a Config requiring it; the file holds the hash itself, never a
// plaintext password, so nothing is re-hashed here. A missing or empty
// file disables authentication rather than erroring, since an absent
// password file is a valid "no auth configured" deployment.
func FromPasswordFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Disabled(), nil
	}
	if err != nil {
		return nil, err
	}
	hash := strings.TrimSpace(string(data))
	if hash == "" {
		return Disabled(), nil
	}
	return &Config{passwordHash: []byte(hash), required: true}, nil
}

// Required reports whether a session must AUTH before running other
// commands.
func (c *Config) Required() bool {
	return c.required
}

// Verify checks password against the configured hash. It always succeeds
// when authentication is not required.
func (c *Config) Verify(password string) bool {
	if !c.required {
		return true
	}
	return bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)) == nil
}
