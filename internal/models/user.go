package models

import (
	"time"
)

type UserRole string

const (
	RoleUser       UserRole = "user"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "superadmin"
)

// Satisfies reports whether the role grants at least the capabilities of
// required. Capability containment is monotonic: user < admin < superadmin.
func (r UserRole) Satisfies(required UserRole) bool {
	return roleRank(r) >= roleRank(required)
}

func roleRank(r UserRole) int {
	switch r {
	case RoleSuperAdmin:
		return 2
	case RoleAdmin:
		return 1
	default:
		return 0
	}
}

// User is the acting principal resolved from the identity provider.
// It is not persisted locally; the authoritative account store is Casdoor.
type User struct {
	ID       string   `json:"id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`

	AvatarURL *string `json:"avatar_url"`

	EmailVerified bool `json:"email_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
