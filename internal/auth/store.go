// Copyright (c) 2026 Civilex. All rights reserved.

package auth

import (
	"context"
	"time"
)

// CredentialStore defines the persistence contract for user credential records.
//
// # Error Semantics
//
// Every method returns storage faults as errors — a failed query is NEVER
// reinterpreted as a business outcome ("not found" from a broken connection
// must not look like "wrong user"). Lookups translate absent rows into
// apperr.NotFound; everything else surfaces as an internal fault and the
// caller fails closed.
type CredentialStore interface {

	/*
		FindByIdentifier resolves a login identifier to a user record.

		The identifier matches either the email (case-insensitive) or the
		first name exactly, mirroring the login form which accepts both.

		Returns:
		  - *User: Hydrated credential record including the password hash
		  - error: apperr.NotFound or storage faults
	*/
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)

	// FindByID resolves a user by primary key.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail resolves a user by case-insensitive email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	/*
		IncrementFailedAttempts atomically bumps the failure counter by one
		and returns the NEW value.

		The increment happens in a single UPDATE ... RETURNING statement so
		that concurrent failed attempts never lose updates: N racing attempts
		observe N distinct counter values.
	*/
	IncrementFailedAttempts(ctx context.Context, id string) (int, error)

	// ResetFailedAttempts sets the failure counter back to zero.
	ResetFailedAttempts(ctx context.Context, id string) error

	// SetActive flips the account's active flag.
	SetActive(ctx context.Context, id string, active bool) error

	// TouchLastLogin stamps ultimo_login with the current time.
	TouchLastLogin(ctx context.Context, id string) error

	/*
		Unlock reactivates a locked account: activo = true AND
		failed_attempts = 0 in one statement, unconditionally (unlocking an
		already-active account is a no-op that still succeeds).

		Returns:
		  - *User: The record after the update
		  - error: apperr.NotFound or storage faults
	*/
	Unlock(ctx context.Context, id string) (*User, error)

	// # Record Lifecycle (admin management, registration)

	// Create persists a brand new user record.
	Create(ctx context.Context, user *User) error

	// List returns all user records ordered by registration time.
	List(ctx context.Context) ([]*User, error)

	// Update persists changes to mutable profile fields (nombre, apellido,
	// email, tipo_usuario, activo).
	Update(ctx context.Context, user *User) error

	// Delete permanently removes a user record.
	Delete(ctx context.Context, id string) error

	// UpdatePassword replaces only the password hash.
	UpdatePassword(ctx context.Context, id, newHash string) error

	// # Password Recovery

	// SetResetToken stores a recovery token and its expiry on the record.
	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error

	// FindByResetToken resolves a user by an unexpired recovery token.
	FindByResetToken(ctx context.Context, token string) (*User, error)

	// ClearResetToken removes any recovery token from the record.
	ClearResetToken(ctx context.Context, id string) error
}
