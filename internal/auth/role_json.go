package auth

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON renders Role as its name (Admin/ReadWrite/ReadOnly), the
// form the user file stores at rest.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON parses a role name back into a Role.
func (r *Role) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "Admin":
		*r = Admin
	case "ReadWrite":
		*r = ReadWrite
	case "ReadOnly":
		*r = ReadOnly
	default:
		return fmt.Errorf("auth: unknown role %q", name)
	}
	return nil
}
