// Copyright (c) 2026 Civilex. All rights reserved.

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/civilex/portal/internal/platform/apperr"
	"github.com/civilex/portal/internal/platform/sec"
	"github.com/civilex/portal/pkg/uuidv7"
)

// # Outcomes

// Outcome is the closed set of authentication results.
//
// The set is deliberately exhaustive: every login attempt maps to exactly one
// of these values, and callers switch over them instead of inspecting errors.
// Errors are reserved for storage faults.
type Outcome int

const (
	// OutcomeNotFound — no record matches the identifier.
	OutcomeNotFound Outcome = iota
	// OutcomeBlocked — the account is deactivated; the password was NOT checked.
	OutcomeBlocked
	// OutcomeWrongPassword — the record exists and is active, but the password
	// does not match. The failure counter has already been incremented.
	OutcomeWrongPassword
	// OutcomeSuccess — credentials verified; counter reset and login stamped.
	OutcomeSuccess
)

// String implements fmt.Stringer for log output.
func (o Outcome) String() string {
	switch o {
	case OutcomeNotFound:
		return "not_found"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeWrongPassword:
		return "wrong_password"
	case OutcomeSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Result carries the outcome of one authentication attempt.
type Result struct {
	Outcome Outcome
	// User is set for Blocked and Success (the handler needs the identity for
	// token issuance, and the blocked branch for audit logging). Nil otherwise.
	User *User
	// FailedAttempts is the counter value AFTER this attempt. Meaningful for
	// WrongPassword (post-increment) and Success (always zero).
	FailedAttempts int
}

// # Service

// PasswordComparer checks a plaintext password against a stored hash.
//
// Injected so tests can count invocations (the blocked branch must perform
// ZERO comparisons) without depending on bcrypt timing.
type PasswordComparer func(password, hash string) bool

// Service implements the authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to the lockout logic,
// hashing, or the outcome mapping must be reviewed by the security team.
type Service struct {
	store    CredentialStore
	comparer PasswordComparer
}

// NewService constructs a [Service] backed by the given credential store.
// The password comparer defaults to bcrypt's constant-time check.
func NewService(store CredentialStore) *Service {
	return &Service{
		store:    store,
		comparer: sec.CheckPasswordHash,
	}
}

// WithComparer overrides the password comparer. Test hook.
func (service *Service) WithComparer(comparer PasswordComparer) *Service {
	service.comparer = comparer
	return service
}

/*
Authenticate runs one credential check with progressive lockout.

Description: The decision procedure, in order:

 1. Resolve the identifier (email case-insensitive, or nombre exact).
    Absent → OutcomeNotFound.
 2. If the account is inactive → OutcomeBlocked WITHOUT touching the
    password. A locked account stays locked even when the caller knows the
    correct password, and we spend no hashing work on it.
 3. Compare the password (bcrypt, constant time, salt+cost embedded in the
    stored hash).
 4. Match → reset the failure counter iff it is nonzero, stamp ultimo_login
    → OutcomeSuccess.
 5. Mismatch → atomically increment the counter; when the new value reaches
    [MaxFailedAttempts] deactivate the account. Either way the outcome is
    OutcomeWrongPassword — the lockout only shows on the NEXT attempt.

Storage faults at any step abort the attempt with an error: the handler
responds 500 and access is denied (fail closed).

Parameters:
  - ctx: context.Context
  - identifier: string (email or nombre)
  - password: string (plaintext)

Returns:
  - *Result: Closed outcome plus identity/counter context
  - error: Storage faults only — never a business outcome
*/
func (service *Service) Authenticate(ctx context.Context, identifier, password string) (*Result, error) {

	// 1. Lookup
	user, err := service.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		if apperr.IsNotFound(err) {
			return &Result{Outcome: OutcomeNotFound}, nil
		}
		return nil, fmt.Errorf("auth_service_lookup_failed: %w", err)
	}

	// 2. Lockout gate BEFORE any password work
	if !user.Active {
		return &Result{Outcome: OutcomeBlocked, User: user, FailedAttempts: user.FailedAttempts}, nil
	}

	// 3. Constant-time password comparison
	if service.comparer(password, user.PasswordHash) {
		// 4. Success path: clear the counter only when there is something to
		// clear, then stamp the login time.
		if user.FailedAttempts > 0 {
			if err := service.store.ResetFailedAttempts(ctx, user.ID); err != nil {
				return nil, fmt.Errorf("auth_service_reset_attempts_failed: %w", err)
			}
			user.FailedAttempts = 0
		}

		if err := service.store.TouchLastLogin(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("auth_service_touch_login_failed: %w", err)
		}

		return &Result{Outcome: OutcomeSuccess, User: user}, nil
	}

	// 5. Failure path: atomic increment, then lock at the threshold.
	attempts, err := service.store.IncrementFailedAttempts(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_increment_failed: %w", err)
	}

	if attempts >= MaxFailedAttempts {
		if err := service.store.SetActive(ctx, user.ID, false); err != nil {
			return nil, fmt.Errorf("auth_service_lock_failed: %w", err)
		}
	}

	return &Result{Outcome: OutcomeWrongPassword, FailedAttempts: attempts}, nil
}

// # Registration

// RegisterInput holds the data required to enroll a new citizen account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      sec.UserRole
}

/*
Register validates, hashes, and persists a brand new user account.

Description: Email is lowercased before storage so the unique index and the
case-insensitive login lookup agree. New accounts start active with a zero
failure counter.

Parameters:
  - ctx: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - error: Conflict (duplicate email) or storage faults
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {

	// Verify email uniqueness. Return a client-safe Conflict error.
	_, err := service.store.FindByEmail(ctx, input.Email)
	if err == nil {
		return nil, apperr.Conflict("El correo ya está registrado")
	}
	if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("auth_service_register_lookup_failed: %w", err)
	}

	// Prevent storing plain-text passwords. Cost 12 per platform policy.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	role := input.Role
	if role == "" {
		role = sec.RoleCitizen
	}

	// Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuidv7.New(),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hashedPassword,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         role,
		Active:       true,
		RegisteredAt: time.Now(),
	}

	// Persist. Duplicate email surfaces as a client-safe Conflict from the store.
	if err := service.store.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// # Password Recovery

/*
RequestPasswordReset initiates the forgot-password flow.

Description: Generates a secure random token, stores it on the user record
with a 1-hour expiry, and returns it for delivery. An unknown email returns
an empty token and no error to prevent account enumeration.

Parameters:
  - ctx: context.Context
  - email: string

Returns:
  - string: Recovery token (empty when the email is unknown)
  - error: Generation or storage faults
*/
func (service *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := service.store.FindByEmail(ctx, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("auth_service_reset_lookup_failed: %w", err)
	}

	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return "", fmt.Errorf("auth_service_generate_reset_token_failed: %w", err)
	}

	expiresAt := time.Now().Add(ResetTokenTTL)
	if err := service.store.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return "", fmt.Errorf("auth_service_save_reset_token_failed: %w", err)
	}

	return token, nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Resolves the still-valid token, hashes the new password, updates
the record, and clears the token so it cannot be replayed.

Parameters:
  - ctx: context.Context
  - token: string
  - newPassword: string

Returns:
  - error: Unauthorized on unknown/expired token, or storage faults
*/
func (service *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := service.store.FindByResetToken(ctx, token)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.Unauthorized("Token inválido o expirado")
		}
		return fmt.Errorf("auth_service_reset_resolve_failed: %w", err)
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_hash_failed: %w", err)
	}

	if err := service.store.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_update_failed: %w", err)
	}

	// Single use: a consumed token must never validate again.
	if err := service.store.ClearResetToken(ctx, user.ID); err != nil {
		return fmt.Errorf("auth_service_reset_clear_failed: %w", err)
	}

	return nil
}
