// Copyright (c) 2026 Civilex. All rights reserved.

/*
Package auth implements credential authentication with progressive lockout.

It defines the core domain entity (User) and the logic that decides whether a
login attempt succeeds, fails, or locks the account after repeated failures.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity:

  - Service: the authenticator (closed outcome set, lockout counter).
  - CredentialStore: abstract persistence contract for user records.
  - Handler: HTTP delivery (login, logout, registration, password recovery).
*/
package auth

import (
	"time"

	"github.com/civilex/portal/internal/platform/sec"
)

// # Domain Entities

// User represents a registered account in the portal.
//
// Wire field names are Spanish because the public API contract predates this
// service and the frontend consumes them as-is.
type User struct {
	ID             string       `json:"id"`
	Email          string       `json:"email"`
	PasswordHash   string       `json:"-"` // Explicitly omitted from JSON for security.
	FirstName      string       `json:"nombre"`
	LastName       string       `json:"apellido"`
	Role           sec.UserRole `json:"tipo_usuario"`
	Active         bool         `json:"activo"`
	FailedAttempts int          `json:"failed_attempts"`
	LastLoginAt    *time.Time   `json:"ultimo_login,omitempty"`
	RegisteredAt   time.Time    `json:"fecha_registro"`

	// Password recovery state lives on the record itself. Never serialized.
	ResetToken   *string    `json:"-"`
	ResetExpires *time.Time `json:"-"`
}

// Profile is the reduced identity view returned by login and /me.
type Profile struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	FirstName string       `json:"nombre"`
	LastName  string       `json:"apellido"`
	Role      sec.UserRole `json:"tipo_usuario"`
}

// Profile projects the user onto its public identity view.
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

// Claims maps the user onto the identity token claims.
func (u *User) Claims() sec.AuthClaims {
	return sec.AuthClaims{
		UserID:    u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
	}
}

// # Field Identifiers

// Wire field names for validation and identity mapping in the authentication domain.
const (
	FieldIdentifier = "identificador"
	FieldEmail      = "email"
	FieldPassword   = "password"
	FieldFirstName  = "nombre"
	FieldLastName   = "apellido"
	FieldRole       = "tipo_usuario"
	FieldToken      = "token"
)
