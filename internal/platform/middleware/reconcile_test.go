// Copyright (c) 2026 Civilex. All rights reserved.

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilex/portal/internal/platform/constants"
	"github.com/civilex/portal/internal/platform/ctxutil"
	"github.com/civilex/portal/internal/platform/middleware"
	"github.com/civilex/portal/internal/platform/sec"
	"github.com/civilex/portal/internal/session"
)

// # Fixtures

func newVerifier(t *testing.T) *sec.TokenService {
	t.Helper()
	tokens, err := sec.NewTokenService("test-secret", constants.AuthIssuer)
	require.NoError(t, err)
	return tokens
}

func adminClaims() sec.AuthClaims {
	return sec.AuthClaims{
		UserID:    "0198d5e2-0000-7000-8000-0000000000aa",
		Email:     "admin@example.com",
		FirstName: "Marta",
		LastName:  "Ruiz",
		Role:      string(sec.RoleAdministrator),
	}
}

func citizenClaims() sec.AuthClaims {
	return sec.AuthClaims{
		UserID:    "0198d5e2-0000-7000-8000-0000000000bb",
		Email:     "ana@example.com",
		FirstName: "Ana",
		LastName:  "García",
		Role:      string(sec.RoleCitizen),
	}
}

// identityEcho captures the reconciled identity the middleware established.
func identityEcho(captured **sec.AuthClaims) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		*captured = ctxutil.GetIdentity(request.Context())
		writer.WriteHeader(http.StatusOK)
	})
}

// # Reconcile

/*
TestReconcile_ValidToken verifies a signed token cookie authenticates the
request and mirrors the claims into a freshly minted session.
*/
func TestReconcile_ValidToken(t *testing.T) {
	tokens := newVerifier(t)
	sessions := session.NewMemoryStore(constants.TokenTTL)
	reconciler := middleware.NewReconciler(tokens, sessions, false)

	signed, err := tokens.GenerateToken(citizenClaims(), constants.TokenTTL)
	require.NoError(t, err)

	var captured *sec.AuthClaims
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: constants.TokenCookieName, Value: signed})
	recorder := httptest.NewRecorder()

	reconciler.Reconcile(identityEcho(&captured)).ServeHTTP(recorder, request)

	require.NotNil(t, captured)
	assert.Equal(t, "ana@example.com", captured.Email)
	assert.Equal(t, string(sec.RoleCitizen), captured.Role)

	// A session was minted and mirrored.
	var minted *http.Cookie
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == constants.SessionCookieName {
			minted = cookie
		}
	}
	require.NotNil(t, minted, "reconciler must mint a session cookie")

	data, err := sessions.Get(request.Context(), minted.Value)
	require.NoError(t, err)
	assert.Equal(t, captured.UserID, data.UserID)
}

/*
TestReconcile_TokenOverridesSession verifies precedence: when the token and
the session disagree, the token identity wins and the session is overwritten.
*/
func TestReconcile_TokenOverridesSession(t *testing.T) {
	tokens := newVerifier(t)
	sessions := session.NewMemoryStore(constants.TokenTTL)
	reconciler := middleware.NewReconciler(tokens, sessions, false)

	// Session holds the admin; the token carries the citizen.
	adminData := adminClaims()
	require.NoError(t, sessions.Put(context.Background(), "sid-1", session.FromClaims(&adminData)))

	signed, err := tokens.GenerateToken(citizenClaims(), constants.TokenTTL)
	require.NoError(t, err)

	var captured *sec.AuthClaims
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: constants.TokenCookieName, Value: signed})
	request.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: "sid-1"})
	recorder := httptest.NewRecorder()

	reconciler.Reconcile(identityEcho(&captured)).ServeHTTP(recorder, request)

	require.NotNil(t, captured)
	assert.Equal(t, "ana@example.com", captured.Email, "token identity must win")

	// The mirror now holds the token's identity.
	data, err := sessions.Get(request.Context(), "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", data.Email)
	assert.Equal(t, string(sec.RoleCitizen), data.Role)
}

/*
TestReconcile_InvalidTokenFallsThrough verifies a garbage token is discarded
silently and the session still authenticates the caller.
*/
func TestReconcile_InvalidTokenFallsThrough(t *testing.T) {
	tokens := newVerifier(t)
	sessions := session.NewMemoryStore(constants.TokenTTL)
	reconciler := middleware.NewReconciler(tokens, sessions, false)

	citizen := citizenClaims()
	require.NoError(t, sessions.Put(context.Background(), "sid-2", session.FromClaims(&citizen)))

	var captured *sec.AuthClaims
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: constants.TokenCookieName, Value: "not-a-jwt"})
	request.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: "sid-2"})
	recorder := httptest.NewRecorder()

	reconciler.Reconcile(identityEcho(&captured)).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "ana@example.com", captured.Email)
}

/*
TestReconcile_Anonymous verifies the middleware never rejects on its own.
*/
func TestReconcile_Anonymous(t *testing.T) {
	tokens := newVerifier(t)
	sessions := session.NewMemoryStore(constants.TokenTTL)
	reconciler := middleware.NewReconciler(tokens, sessions, false)

	var captured *sec.AuthClaims
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	recorder := httptest.NewRecorder()

	reconciler.Reconcile(identityEcho(&captured)).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Nil(t, captured)
}

// # Guards

/*
TestRequireAuth verifies the 401 guard for API routes.
*/
func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	t.Run("anonymous_rejected", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		middleware.RequireAuth(next).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("authenticated_passes", func(t *testing.T) {
		claims := citizenClaims()
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request = request.WithContext(ctxutil.WithIdentity(request.Context(), &claims))

		recorder := httptest.NewRecorder()
		middleware.RequireAuth(next).ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

/*
TestRequireAuthRedirect verifies browser routes redirect to the login page.
*/
func TestRequireAuthRedirect(t *testing.T) {
	next := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	middleware.RequireAuthRedirect(next).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/panel", nil))

	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, constants.LoginPath, recorder.Header().Get("Location"))
}

/*
TestRequireAdministrator verifies the 401 vs 403 distinction.
*/
func TestRequireAdministrator(t *testing.T) {
	next := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		claims *sec.AuthClaims
		status int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"citizen", func() *sec.AuthClaims { c := citizenClaims(); return &c }(), http.StatusForbidden},
		{"administrator", func() *sec.AuthClaims { c := adminClaims(); return &c }(), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/usuarios", nil)
			if tt.claims != nil {
				request = request.WithContext(ctxutil.WithIdentity(request.Context(), tt.claims))
			}

			recorder := httptest.NewRecorder()
			middleware.RequireAdministrator(next).ServeHTTP(recorder, request)
			assert.Equal(t, tt.status, recorder.Code)
		})
	}
}
