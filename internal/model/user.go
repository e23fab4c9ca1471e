package model

import "time"

// Role names as stored in user_roles and emitted in token claims.
const (
	RoleSuperAdmin = "SuperAdmin"
	RoleAgent      = "AgentEY"
	RoleEmployee   = "EmployeeEY"
)

// User mirrors the users table. Roles are loaded separately from
// user_roles; the slice is nil until populated.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Department   string    `json:"department"`
	Fonction     string    `json:"fonction"`
	IsActive     bool      `json:"is_active"`
	IsFirstLogin bool      `json:"is_first_login"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Roles        []string  `json:"roles,omitempty"`
}

// HasRole reports whether the loaded role set contains the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// EffectiveActive reports whether the user may hold full access tokens.
// SuperAdmin is always treated as active and past first login, regardless
// of the stored flags.
func (u *User) EffectiveActive() bool {
	return u.HasRole(RoleSuperAdmin) || (u.IsActive && !u.IsFirstLogin)
}
