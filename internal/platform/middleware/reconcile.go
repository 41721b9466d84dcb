// Copyright (c) 2026 Civilex. All rights reserved.

package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/civilex/portal/internal/platform/apperr"
	"github.com/civilex/portal/internal/platform/constants"
	"github.com/civilex/portal/internal/platform/ctxutil"
	"github.com/civilex/portal/internal/platform/respond"
	"github.com/civilex/portal/internal/platform/sec"
	"github.com/civilex/portal/internal/session"
)

// TokenVerifier defines the interface needed to verify identity tokens.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the reconciler from the concrete
// [sec.TokenService], allowing mocks to be injected during unit testing.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.AuthClaims, error)
}

// Reconciler establishes the caller's identity from either a signed token
// cookie or a server-side session, keeping both in sync.
//
// # State machine (per request)
//
//  1. Valid token cookie present → claims extracted → session mirror
//     overwritten with the token's claims → authenticated. The token is the
//     higher-priority source of truth.
//  2. Token present but invalid/expired → discarded silently; token failure
//     alone is not fatal.
//  3. Session cookie resolves to a stored identity → authenticated from the
//     session.
//  4. Otherwise the request stays anonymous. Reconcile itself never rejects;
//     [RequireAuth] and friends enforce access downstream.
type Reconciler struct {
	verifier TokenVerifier
	sessions session.Store
	secure   bool
}

// NewReconciler constructs a [Reconciler].
//
// secure controls the Secure attribute on the session cookie it may issue.
func NewReconciler(verifier TokenVerifier, sessions session.Store, secure bool) *Reconciler {
	return &Reconciler{
		verifier: verifier,
		sessions: sessions,
		secure:   secure,
	}
}

// Reconcile is the identity middleware. It only ever ENRICHES the request
// context; rejection is left to the Require* guards so that public routes
// share the same chain.
func (reconciler *Reconciler) Reconcile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		logger := ctxutil.GetLogger(request.Context())

		// ── 1. Token cookie (primary source of truth) ─────────────────────
		if cookie, err := request.Cookie(constants.TokenCookieName); err == nil && cookie.Value != "" {
			claims, verifyErr := reconciler.verifier.VerifyToken(cookie.Value)
			if verifyErr == nil {
				reconciler.syncSession(writer, request, claims, logger)
				ctx := ctxutil.WithIdentity(request.Context(), claims)
				next.ServeHTTP(writer, request.WithContext(ctx))
				return
			}

			// Invalid/expired token: discard and fall through to the session.
			logger.DebugContext(request.Context(), "token_rejected",
				slog.String("error", verifyErr.Error()),
			)
		}

		// ── 2. Server-side session fallback ───────────────────────────────
		if cookie, err := request.Cookie(constants.SessionCookieName); err == nil && cookie.Value != "" {
			data, getErr := reconciler.sessions.Get(request.Context(), cookie.Value)
			if getErr == nil {
				ctx := ctxutil.WithIdentity(request.Context(), data.Claims())
				next.ServeHTTP(writer, request.WithContext(ctx))
				return
			}
			if !errors.Is(getErr, session.ErrNotFound) {
				// Store outage: the caller simply stays anonymous; guarded
				// routes will deny. Never treat a storage fault as identity.
				logger.ErrorContext(request.Context(), "session_lookup_failed",
					slog.Any("error", getErr),
				)
			}
		}

		// ── 3. Anonymous ──────────────────────────────────────────────────
		next.ServeHTTP(writer, request)
	})
}

// syncSession mirrors the verified token claims into the server-side session
// so that subsequent session-only checks see consistent data. An existing
// session for a DIFFERENT user is overwritten: the token wins.
func (reconciler *Reconciler) syncSession(writer http.ResponseWriter, request *http.Request, claims *sec.AuthClaims, logger *slog.Logger) {
	sessionID := ""
	if cookie, err := request.Cookie(constants.SessionCookieName); err == nil {
		sessionID = cookie.Value
	}

	// No session yet: mint one so the session credential exists even if the
	// token cookie is later lost.
	if sessionID == "" {
		newID, err := sec.GenerateSecureToken(session.IDLength)
		if err != nil {
			logger.ErrorContext(request.Context(), "session_id_generation_failed", slog.Any("error", err))
			return
		}
		sessionID = newID
		http.SetCookie(writer, SessionCookie(sessionID, reconciler.secure))
	}

	if err := reconciler.sessions.Put(request.Context(), sessionID, session.FromClaims(claims)); err != nil {
		// The valid token alone authenticates this request; a failed mirror
		// write must not fail the request, but it is never silent.
		logger.ErrorContext(request.Context(), "session_sync_failed", slog.Any("error", err))
	}
}

// # Access Guards

// RequireAuth blocks unauthenticated API requests with a 401 JSON error.
//
// Must be registered in the router AFTER [Reconciler.Reconcile].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetIdentity(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("No autenticado"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireAuthRedirect blocks unauthenticated browser requests by redirecting
// to the login page instead of returning a JSON error.
func RequireAuthRedirect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetIdentity(request.Context()) == nil {
			http.Redirect(writer, request, constants.LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireAdministrator blocks requests whose reconciled identity does not
// carry the administrator role.
//
// # Flow
//  1. Anonymous → 401 (authentication problem).
//  2. Authenticated but not an administrator → 403 (authorization problem,
//     deliberately distinct from 401).
func RequireAdministrator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		claims := ctxutil.GetIdentity(request.Context())

		if claims == nil {
			respond.Error(writer, request, apperr.Unauthorized("No autenticado"))
			return
		}

		if !sec.UserRole(claims.Role).IsAdministrator() {
			respond.Error(writer, request, apperr.Forbidden("Acceso restringido: se requieren privilegios de administrador"))
			return
		}

		next.ServeHTTP(writer, request)
	})
}

// SessionCookie builds the canonical session ID cookie.
//
// Shared with the login handler so attributes never drift between issuance
// sites.
func SessionCookie(sessionID string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(constants.TokenTTL.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
