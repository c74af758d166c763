package domain

import "time"

// Role is the fixed capability class of an account.
type Role string

const (
	RoleEmployee    Role = "employee"
	RoleTeamManager Role = "team_manager"
	RoleAdmin       Role = "admin"
)

// ParseRole converts a raw string into a Role. Matching is exact.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleEmployee, RoleTeamManager, RoleAdmin:
		return Role(s), nil
	default:
		return "", ErrInvalidRole
	}
}

func (r Role) String() string { return string(r) }

// User models an account. PasswordHash never leaves the identity layer.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"-"`
}

// Principal is the authenticated identity carried by a session token.
type Principal struct {
	UserID   string
	Username string
	Role     Role
}

// Authorize fails with ErrForbidden unless p.Role is one of allowed.
func Authorize(p Principal, allowed ...Role) error {
	for _, r := range allowed {
		if p.Role == r {
			return nil
		}
	}
	return ErrForbidden
}
