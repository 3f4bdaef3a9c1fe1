package types

import "time"

// Administrator roles. Unlike member roles these carry no extra fields,
// only different privilege levels.
const (
	AdminRoleSuperAdmin = "SuperAdmin"
	AdminRoleAdmin      = "Admin"
	AdminRoleEditor     = "Editor"
)

// AdminRoles lists every valid administrator role.
var AdminRoles = []string{AdminRoleSuperAdmin, AdminRoleAdmin, AdminRoleEditor}

// IsAdminRole reports whether role names a valid administrator role.
func IsAdminRole(role string) bool {
	for _, r := range AdminRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Admin represents an administrator account. Admins live in their own
// table and never carry member role fields.
type Admin struct {
	// ID is the unique identifier of the administrator.
	ID int `json:"id" db:"id"`

	// FullName is the administrator's display name.
	FullName string `json:"fullName" db:"full_name"`

	// Email is the administrator's unique, lower-cased email address.
	Email string `json:"email" db:"email"`

	// Role is one of the administrator roles above.
	Role string `json:"role" db:"role"`

	// PasswordHash stores the hashed representation of the password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the administrator was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
