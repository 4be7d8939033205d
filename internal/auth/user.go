package auth

import "golang.org/x/crypto/bcrypt"

// User is a single multi-user-mode account, persisted at rest as one
// element of the JSON array the user file holds.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Role         Role   `json:"role"`
	Active       bool   `json:"active"`
	Database     string `json:"database,omitempty"`
}

// MarshalJSON and UnmarshalJSON for Role are defined in role_json.go so
// the on-disk format uses the human-readable role names
// (Admin/ReadWrite/ReadOnly), not bare integers.

// NewUser hashes password and returns an active User with the given role.
func NewUser(username, password string, role Role) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}, nil
}

// VerifyPassword reports whether password matches u's stored hash.
func (u User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
