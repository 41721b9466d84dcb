// Copyright (c) 2026 Civilex. All rights reserved.

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
//
// The set is closed: the portal only distinguishes ordinary citizens from
// administrators. Values match the tipo_usuario column verbatim.
type UserRole string

const (
	// Full access to user management and catalogue administration
	RoleAdministrator UserRole = "administrador"

	// Default role for registered members of the portal
	RoleCitizen UserRole = "ciudadano"
)

// IsAdministrator reports whether the role grants administrative access.
func (r UserRole) IsAdministrator() bool {
	return r == RoleAdministrator
}

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	return r == RoleAdministrator || r == RoleCitizen
}
