// Copyright (c) 2026 Civilex. All rights reserved.

package auth

import "time"

// # Authentication Constraints

const (
	// MaxFailedAttempts is the number of consecutive failed password attempts
	// after which the account is deactivated. Reaching this threshold sets
	// activo = false; only an administrator unlock (or a successful login
	// before the threshold) clears the counter.
	MaxFailedAttempts = 3

	// ResetTokenTTL is the duration a password reset token remains valid.
	// Short-lived (1 hour) for security.
	ResetTokenTTL = 1 * time.Hour

	// ResetTokenLength is the byte length of the random password reset token
	// (hex-encoded to twice this many characters).
	ResetTokenLength = 20
)
