// Copyright (c) 2026 Civilex. All rights reserved.

/*
Package account implements administrative user management.

It exposes the CRUD surface over user records plus the unlock operation that
reverses a progressive-lockout deactivation. The package reuses the
credential store owned by the auth domain rather than defining a parallel
persistence layer — there is exactly one source of truth for user records.

# Security

Every endpoint in this package is mounted behind the administrator guard; a
citizen session never reaches these handlers.
*/
package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/civilex/portal/internal/auth"
	"github.com/civilex/portal/internal/platform/apperr"
	"github.com/civilex/portal/internal/platform/sec"
)

// Service implements the administrative user management use cases.
type Service struct {
	store       auth.CredentialStore
	authService *auth.Service
}

// NewService constructs an account [Service].
//
// The auth service is reused for account creation so hashing and email
// normalization follow a single code path.
func NewService(store auth.CredentialStore, authService *auth.Service) *Service {
	return &Service{store: store, authService: authService}
}

// List returns every user record, newest first.
func (service *Service) List(ctx context.Context) ([]*auth.User, error) {
	users, err := service.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("account_service_list_failed: %w", err)
	}
	return users, nil
}

// Get returns a single user record by ID.
func (service *Service) Get(ctx context.Context, id string) (*auth.User, error) {
	return service.store.FindByID(ctx, id)
}

// CreateInput holds the data an administrator supplies for a new account.
type CreateInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      sec.UserRole
}

/*
Create enrolls a new account on behalf of an administrator.

Description: Unlike public registration, the administrator chooses the role —
this is the only path that can mint another administrator.

Parameters:
  - ctx: context.Context
  - input: CreateInput

Returns:
  - *auth.User: Created entity
  - error: Validation, Conflict, or storage faults
*/
func (service *Service) Create(ctx context.Context, input CreateInput) (*auth.User, error) {
	if !input.Role.Valid() {
		return nil, apperr.ValidationError("Tipo de usuario inválido")
	}

	return service.authService.Register(ctx, auth.RegisterInput{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      input.Role,
	})
}

// UpdateInput holds the mutable profile fields. Nil pointers mean "unchanged".
type UpdateInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *sec.UserRole
	Active    *bool
}

/*
Update applies partial changes to a user record.

Parameters:
  - ctx: context.Context
  - id: string
  - input: UpdateInput

Returns:
  - *auth.User: The record after the update
  - error: NotFound, Conflict, validation, or storage faults
*/
func (service *Service) Update(ctx context.Context, id string, input UpdateInput) (*auth.User, error) {
	user, err := service.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		// Stored lowercase, like registration, so the unique index and the
		// case-insensitive login lookup stay in agreement.
		user.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperr.ValidationError("Tipo de usuario inválido")
		}
		user.Role = *input.Role
	}
	if input.Active != nil {
		user.Active = *input.Active
	}

	if err := service.store.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Delete permanently removes a user record.
func (service *Service) Delete(ctx context.Context, id string) error {
	return service.store.Delete(ctx, id)
}

/*
Unlock reverses a progressive-lockout deactivation.

Description: Unconditional — activo = true and failed_attempts = 0 regardless
of the record's current state. Unlocking an already-active account succeeds
and is a no-op.

Parameters:
  - ctx: context.Context
  - id: string

Returns:
  - *auth.User: The record after the unlock
  - error: NotFound or storage faults
*/
func (service *Service) Unlock(ctx context.Context, id string) (*auth.User, error) {
	return service.store.Unlock(ctx, id)
}
