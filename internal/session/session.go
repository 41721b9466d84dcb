// Copyright (c) 2026 Civilex. All rights reserved.

/*
Package session implements the server-side half of the portal's dual-mode
identity model.

Every authenticated caller holds two independent credentials: a signed token
cookie (client-held) and a server-side session referenced by an opaque session
ID cookie (server-held). Either one can satisfy a request on its own; the
reconciler middleware keeps the session mirror in sync with the token whenever
both are present.

Architecture:

  - Data: the identity snapshot mirrored from the token claims.
  - Store: abstract persistence contract.
  - RedisStore: production implementation with TTL-based expiry.
  - MemoryStore: in-process implementation for tests.
*/
package session

import (
	"context"
	"errors"

	"github.com/civilex/portal/internal/platform/sec"
)

// ErrNotFound is returned when no session exists for the given ID (or it expired).
var ErrNotFound = errors.New("session: not found")

// IDLength is the byte length of the random session identifier.
const IDLength = 32

// Data is the identity snapshot stored server-side for one session.
//
// Field names mirror the token claims so that session-only checks see exactly
// the same identity the token would have produced.
type Data struct {
	UserID    string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Role      string `json:"tipo_usuario"`
}

// FromClaims snapshots verified token claims into session data.
func FromClaims(claims *sec.AuthClaims) *Data {
	return &Data{
		UserID:    claims.UserID,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Role:      claims.Role,
	}
}

// Claims rebuilds the identity claims from the stored snapshot.
//
// Registered JWT fields (issuer, expiry) are intentionally absent: a
// session-sourced identity is bounded by the session TTL instead.
func (d *Data) Claims() *sec.AuthClaims {
	return &sec.AuthClaims{
		UserID:    d.UserID,
		Email:     d.Email,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Role:      d.Role,
	}
}

// Store defines the persistence contract for server-side sessions.
//
// Implementations own expiry: a Get after the configured TTL must return
// [ErrNotFound]. Mutations are scoped to a single request/response cycle and
// need no coordination beyond what the backing store guarantees.
type Store interface {

	/*
		Get retrieves the identity stored for a session ID.

		Returns:
		  - *Data: Stored identity snapshot
		  - error: ErrNotFound when absent/expired, or storage failures
	*/
	Get(ctx context.Context, sessionID string) (*Data, error)

	/*
		Put stores (or overwrites) the identity for a session ID and renews
		its TTL. Overwriting is the mechanism by which a valid token
		resynchronizes a stale session.
	*/
	Put(ctx context.Context, sessionID string, data *Data) error

	/*
		Delete destroys the session. Deleting an absent session is not an
		error — logout is idempotent.
	*/
	Delete(ctx context.Context, sessionID string) error
}
