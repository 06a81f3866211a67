package models

// Role is the closed set of account roles. Anything outside this set stored
// in the credential store is treated as corruption and surfaces as
// ErrUnknownRole, never as a silent default.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFaculty Role = "faculty"
	RoleStudent Role = "student"
)

// ParseRole converts a stored role string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleFaculty, RoleStudent:
		return Role(s), nil
	default:
		return "", ErrUnknownRole
	}
}

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string {
	return string(r)
}
