// Copyright (c) 2026 Civilex. All rights reserved.

// PostgreSQL implementation of [CredentialStore].
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types via dberr to avoid leaking storage implementation
// details.

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civilex/portal/internal/platform/dberr"
)

// userColumns is the canonical projection shared by every SELECT in this file.
const userColumns = `
	id, email, password_hash, nombre, apellido, tipo_usuario,
	activo, failed_attempts, ultimo_login, reset_token, reset_expires, fecha_registro`

// PostgresCredentialStore implements [CredentialStore] using pgx.
type PostgresCredentialStore struct {
	pool *pgxpool.Pool
}

// NewCredentialStore creates the PostgreSQL implementation of [CredentialStore].
func NewCredentialStore(pool *pgxpool.Pool) *PostgresCredentialStore {
	return &PostgresCredentialStore{pool: pool}
}

// scanTarget is implemented by pgx.Row and pgx.Rows.
type scanTarget interface {
	Scan(dest ...any) error
}

// scanUser hydrates a full User record from a row using the [userColumns] projection.
func scanUser(row scanTarget) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Active,
		&user.FailedAttempts,
		&user.LastLoginAt,
		&user.ResetToken,
		&user.ResetExpires,
		&user.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

/*
FindByIdentifier resolves a login identifier to a user record.

Description: Matches the stored email case-insensitively OR the first name
exactly, mirroring the login form which accepts either.

Parameters:
  - ctx: context.Context
  - identifier: string (email or nombre)

Returns:
  - *User: Hydrated credential record
  - error: apperr.NotFound or storage faults
*/
func (store *PostgresCredentialStore) FindByIdentifier(ctx context.Context, identifier string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM usuarios
		WHERE lower(email) = lower($1) OR nombre = $1
		LIMIT 1`

	user, err := scanUser(store.pool.QueryRow(ctx, query, identifier))
	if err != nil {
		return nil, dberr.Wrap(err, "Usuario")
	}

	return user, nil
}

/*
FindByID resolves a user record by primary key.

Parameters:
  - ctx: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated credential record
  - error: apperr.NotFound or storage faults
*/
func (store *PostgresCredentialStore) FindByID(ctx context.Context, id string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM usuarios
		WHERE id = $1`

	user, err := scanUser(store.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "Usuario")
	}

	return user, nil
}

/*
FindByEmail resolves a user record by case-insensitive email.

Parameters:
  - ctx: context.Context
  - email: string

Returns:
  - *User: Hydrated credential record
  - error: apperr.NotFound or storage faults
*/
func (store *PostgresCredentialStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM usuarios
		WHERE lower(email) = lower($1)`

	user, err := scanUser(store.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "Usuario")
	}

	return user, nil
}

/*
IncrementFailedAttempts atomically bumps the failure counter and returns the new value.

Description: Single-statement increment with RETURNING so concurrent failed
attempts never lose updates — N racing callers observe N distinct values.

Parameters:
  - ctx: context.Context
  - id: string

Returns:
  - int: The counter value AFTER the increment
  - error: apperr.NotFound or storage faults
*/
func (store *PostgresCredentialStore) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	const query = `
		UPDATE usuarios
		SET failed_attempts = failed_attempts + 1
		WHERE id = $1
		RETURNING failed_attempts`

	var attempts int
	if err := store.pool.QueryRow(ctx, query, id).Scan(&attempts); err != nil {
		return 0, dberr.Wrap(err, "Usuario")
	}

	return attempts, nil
}

// ResetFailedAttempts sets the failure counter back to zero.
func (store *PostgresCredentialStore) ResetFailedAttempts(ctx context.Context, id string) error {
	const query = "UPDATE usuarios SET failed_attempts = 0 WHERE id = $1"
	if _, err := store.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("credential_store_reset_attempts_failed: %w", err)
	}
	return nil
}

// SetActive flips the account's active flag.
func (store *PostgresCredentialStore) SetActive(ctx context.Context, id string, active bool) error {
	const query = "UPDATE usuarios SET activo = $2 WHERE id = $1"
	if _, err := store.pool.Exec(ctx, query, id, active); err != nil {
		return fmt.Errorf("credential_store_set_active_failed: %w", err)
	}
	return nil
}

// TouchLastLogin stamps ultimo_login with the current time.
func (store *PostgresCredentialStore) TouchLastLogin(ctx context.Context, id string) error {
	const query = "UPDATE usuarios SET ultimo_login = NOW() WHERE id = $1"
	if _, err := store.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("credential_store_touch_login_failed: %w", err)
	}
	return nil
}

/*
Unlock reactivates a locked account in one unconditional statement.

Description: Sets activo = true AND failed_attempts = 0 regardless of prior
state (unlocking an already-active account is a harmless no-op) and returns
the updated record for the admin response.

Parameters:
  - ctx: context.Context
  - id: string

Returns:
  - *User: The record after the update
  - error: apperr.NotFound or storage faults
*/
func (store *PostgresCredentialStore) Unlock(ctx context.Context, id string) (*User, error) {
	const query = `
		UPDATE usuarios
		SET activo = TRUE, failed_attempts = 0
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(store.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "Usuario")
	}

	return user, nil
}

/*
Create persists a new user record.

Description: Email is stored lowercased by the service layer so the unique
index and the case-insensitive lookup agree.

Parameters:
  - ctx: context.Context
  - user: *User (entity to persist)

Returns:
  - error: Conflict on duplicate email, or storage faults
*/
func (store *PostgresCredentialStore) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO usuarios (
			id, email, password_hash, nombre, apellido, tipo_usuario,
			activo, failed_attempts, fecha_registro
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if user.RegisteredAt.IsZero() {
		user.RegisteredAt = time.Now()
	}

	_, err := store.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		user.Active,
		user.FailedAttempts,
		user.RegisteredAt,
	)

	if err != nil {
		return dberr.Wrap(err, "Usuario")
	}

	return nil
}

/*
List returns all user records ordered by registration time.

Returns:
  - []*User: Every account, newest first
  - error: Storage faults
*/
func (store *PostgresCredentialStore) List(ctx context.Context) ([]*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM usuarios
		ORDER BY fecha_registro DESC`

	rows, err := store.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("credential_store_list_failed: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("credential_store_list_scan_failed: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("credential_store_list_rows_failed: %w", err)
	}

	return users, nil
}

/*
Update persists changes to a user's mutable profile fields.

Parameters:
  - ctx: context.Context
  - user: *User

Returns:
  - error: Conflict on duplicate email, or storage faults
*/
func (store *PostgresCredentialStore) Update(ctx context.Context, user *User) error {
	const query = `
		UPDATE usuarios
		SET email = $2, nombre = $3, apellido = $4, tipo_usuario = $5, activo = $6
		WHERE id = $1`

	tag, err := store.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Role,
		user.Active,
	)

	if err != nil {
		return dberr.Wrap(err, "Usuario")
	}

	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "Usuario")
	}

	return nil
}

// Delete permanently removes a user record.
func (store *PostgresCredentialStore) Delete(ctx context.Context, id string) error {
	const query = "DELETE FROM usuarios WHERE id = $1"

	tag, err := store.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("credential_store_delete_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "Usuario")
	}

	return nil
}

// UpdatePassword replaces only the password hash.
func (store *PostgresCredentialStore) UpdatePassword(ctx context.Context, id, newHash string) error {
	const query = "UPDATE usuarios SET password_hash = $2 WHERE id = $1"
	if _, err := store.pool.Exec(ctx, query, id, newHash); err != nil {
		return fmt.Errorf("credential_store_update_password_failed: %w", err)
	}
	return nil
}

// # Password Recovery

// SetResetToken stores a recovery token and its expiry on the record.
func (store *PostgresCredentialStore) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	const query = "UPDATE usuarios SET reset_token = $2, reset_expires = $3 WHERE id = $1"
	if _, err := store.pool.Exec(ctx, query, id, token, expiresAt); err != nil {
		return fmt.Errorf("credential_store_set_reset_token_failed: %w", err)
	}
	return nil
}

/*
FindByResetToken resolves a user by an unexpired recovery token.

Description: Expiry is enforced in the query itself so an expired token is
indistinguishable from an unknown one.

Parameters:
  - ctx: context.Context
  - token: string

Returns:
  - *User: Owner of the still-valid token
  - error: apperr.NotFound or storage faults
*/
func (store *PostgresCredentialStore) FindByResetToken(ctx context.Context, token string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM usuarios
		WHERE reset_token = $1 AND reset_expires > NOW()`

	user, err := scanUser(store.pool.QueryRow(ctx, query, token))
	if err != nil {
		return nil, dberr.Wrap(err, "Token")
	}

	return user, nil
}

// ClearResetToken removes any recovery token from the record.
func (store *PostgresCredentialStore) ClearResetToken(ctx context.Context, id string) error {
	const query = "UPDATE usuarios SET reset_token = NULL, reset_expires = NULL WHERE id = $1"
	if _, err := store.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("credential_store_clear_reset_token_failed: %w", err)
	}
	return nil
}
