// Copyright (c) 2026 Civilex. All rights reserved.

package account_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilex/portal/internal/account"
	"github.com/civilex/portal/internal/auth"
	"github.com/civilex/portal/internal/platform/apperr"
	"github.com/civilex/portal/internal/platform/ctxutil"
	"github.com/civilex/portal/internal/platform/middleware"
	"github.com/civilex/portal/internal/platform/sec"
)

// # Test Doubles

// fakeCredentialStore is an in-memory credential store for the admin surface.
type fakeCredentialStore struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

func newFakeCredentialStore(users ...*auth.User) *fakeCredentialStore {
	store := &fakeCredentialStore{users: make(map[string]*auth.User)}
	for _, user := range users {
		clone := *user
		store.users[user.ID] = &clone
	}
	return store
}

func (s *fakeCredentialStore) FindByIdentifier(_ context.Context, identifier string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, identifier) || user.FirstName == identifier {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Usuario")
}

func (s *fakeCredentialStore) FindByID(_ context.Context, id string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, apperr.NotFound("Usuario")
}

func (s *fakeCredentialStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Usuario")
}

func (s *fakeCredentialStore) IncrementFailedAttempts(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return 0, apperr.NotFound("Usuario")
	}
	user.FailedAttempts++
	return user.FailedAttempts, nil
}

func (s *fakeCredentialStore) ResetFailedAttempts(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		user.FailedAttempts = 0
	}
	return nil
}

func (s *fakeCredentialStore) SetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		user.Active = active
	}
	return nil
}

func (s *fakeCredentialStore) TouchLastLogin(_ context.Context, id string) error {
	return nil
}

func (s *fakeCredentialStore) Unlock(_ context.Context, id string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("Usuario")
	}
	user.Active = true
	user.FailedAttempts = 0
	clone := *user
	return &clone, nil
}

func (s *fakeCredentialStore) Create(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *fakeCredentialStore) List(_ context.Context) ([]*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]*auth.User, 0, len(s.users))
	for _, user := range s.users {
		clone := *user
		users = append(users, &clone)
	}
	return users, nil
}

func (s *fakeCredentialStore) Update(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return apperr.NotFound("Usuario")
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *fakeCredentialStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return apperr.NotFound("Usuario")
	}
	delete(s.users, id)
	return nil
}

func (s *fakeCredentialStore) UpdatePassword(_ context.Context, id, newHash string) error {
	return nil
}

func (s *fakeCredentialStore) SetResetToken(_ context.Context, id, token string, expiresAt time.Time) error {
	return nil
}

func (s *fakeCredentialStore) FindByResetToken(_ context.Context, token string) (*auth.User, error) {
	return nil, apperr.NotFound("Token")
}

func (s *fakeCredentialStore) ClearResetToken(_ context.Context, id string) error {
	return nil
}

// snapshot returns a copy of the stored record for assertions.
func (s *fakeCredentialStore) snapshot(id string) auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

// # Fixtures

const (
	lockedUserID = "0198d5e2-0000-7000-8000-000000000001"
	activeUserID = "0198d5e2-0000-7000-8000-000000000002"
	absentUserID = "0198d5e2-0000-7000-8000-0000000000ff"
)

func lockedUser() *auth.User {
	return &auth.User{
		ID:             lockedUserID,
		Email:          "bloqueada@example.com",
		PasswordHash:   "hash",
		FirstName:      "Luisa",
		LastName:       "Pérez",
		Role:           sec.RoleCitizen,
		Active:         false,
		FailedAttempts: 3,
		RegisteredAt:   time.Now(),
	}
}

func activeUser() *auth.User {
	return &auth.User{
		ID:           activeUserID,
		Email:        "activa@example.com",
		PasswordHash: "hash",
		FirstName:    "Ana",
		LastName:     "García",
		Role:         sec.RoleCitizen,
		Active:       true,
		RegisteredAt: time.Now(),
	}
}

// newAdminRouter mounts the account routes behind the administrator guard,
// exactly as the server does.
func newAdminRouter(store *fakeCredentialStore) http.Handler {
	authService := auth.NewService(store)
	handler := account.NewHandler(account.NewService(store, authService))

	router := chi.NewRouter()
	router.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireAdministrator)
		admin.Mount("/usuarios", handler.Routes())
	})
	return router
}

// asRole attaches a reconciled identity with the given role to the request.
func asRole(request *http.Request, role sec.UserRole) *http.Request {
	claims := &sec.AuthClaims{
		UserID: "0198d5e2-0000-7000-8000-0000000000aa",
		Email:  "quien@example.com",
		Role:   string(role),
	}
	return request.WithContext(ctxutil.WithIdentity(request.Context(), claims))
}

// # Unlock

/*
TestUnlock_LockedAccount verifies the unlock reverses a lockout: activo back
to true and the failure counter cleared, with the updated record returned.
*/
func TestUnlock_LockedAccount(t *testing.T) {
	store := newFakeCredentialStore(lockedUser())
	router := newAdminRouter(store)

	request := asRole(httptest.NewRequest(http.MethodPost, "/usuarios/"+lockedUserID+"/unlock", nil), sec.RoleAdministrator)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Usuario desbloqueado correctamente")
	assert.Contains(t, recorder.Body.String(), `"activo":true`)
	assert.Contains(t, recorder.Body.String(), `"failed_attempts":0`)

	stored := store.snapshot(lockedUserID)
	assert.True(t, stored.Active)
	assert.Equal(t, 0, stored.FailedAttempts)
}

/*
TestUnlock_ActiveAccount verifies unlocking an account that was never locked
is an unconditional no-op that still succeeds.
*/
func TestUnlock_ActiveAccount(t *testing.T) {
	store := newFakeCredentialStore(activeUser())
	router := newAdminRouter(store)

	request := asRole(httptest.NewRequest(http.MethodPost, "/usuarios/"+activeUserID+"/unlock", nil), sec.RoleAdministrator)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)

	stored := store.snapshot(activeUserID)
	assert.True(t, stored.Active)
	assert.Equal(t, 0, stored.FailedAttempts)
}

/*
TestUnlock_UnknownAccount verifies an unknown ID yields 404.
*/
func TestUnlock_UnknownAccount(t *testing.T) {
	store := newFakeCredentialStore()
	router := newAdminRouter(store)

	request := asRole(httptest.NewRequest(http.MethodPost, "/usuarios/"+absentUserID+"/unlock", nil), sec.RoleAdministrator)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

/*
TestUnlock_RequiresAdministrator verifies the guard on the mount: anonymous
callers get 401, authenticated citizens 403.
*/
func TestUnlock_RequiresAdministrator(t *testing.T) {
	store := newFakeCredentialStore(lockedUser())
	router := newAdminRouter(store)
	target := "/usuarios/" + lockedUserID + "/unlock"

	t.Run("anonymous", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, target, nil))
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("citizen", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, asRole(httptest.NewRequest(http.MethodPost, target, nil), sec.RoleCitizen))
		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})

	// The account stayed locked: no guard rejection may have side effects.
	stored := store.snapshot(lockedUserID)
	assert.False(t, stored.Active)
}

// # Update

/*
TestUpdate_NormalizesEmail verifies admin edits store the email lowercased,
matching the registration write path.
*/
func TestUpdate_NormalizesEmail(t *testing.T) {
	store := newFakeCredentialStore(activeUser())
	service := account.NewService(store, auth.NewService(store))

	email := "  Nueva@Example.COM "
	updated, err := service.Update(context.Background(), activeUserID, account.UpdateInput{Email: &email})
	require.NoError(t, err)

	assert.Equal(t, "nueva@example.com", updated.Email)
	assert.Equal(t, "nueva@example.com", store.snapshot(activeUserID).Email)
}
