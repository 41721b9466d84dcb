// Copyright (c) 2026 Civilex. All rights reserved.

package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilex/portal/internal/auth"
	"github.com/civilex/portal/internal/platform/apperr"
	"github.com/civilex/portal/internal/platform/sec"
)

// # Test Doubles

// fakeStore is an in-memory CredentialStore. A mutex guards every record
// mutation so the concurrency tests exercise the same atomicity contract the
// SQL implementation provides with single-statement updates.
type fakeStore struct {
	mu    sync.Mutex
	users map[string]*auth.User

	// failOn makes the named method return a storage fault.
	failOn string
}

func newFakeStore(users ...*auth.User) *fakeStore {
	store := &fakeStore{users: make(map[string]*auth.User)}
	for _, user := range users {
		clone := *user
		store.users[user.ID] = &clone
	}
	return store
}

var errStorage = errors.New("storage down")

func (s *fakeStore) fault(method string) error {
	if s.failOn == method {
		return errStorage
	}
	return nil
}

func (s *fakeStore) FindByIdentifier(_ context.Context, identifier string) (*auth.User, error) {
	if err := s.fault("FindByIdentifier"); err != nil {
		return nil, err
	}
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

func (s *fakeStore) FindByID(_ context.Context, id string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, apperr.NotFound("Usuario")
}

func (s *fakeStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
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

func (s *fakeStore) IncrementFailedAttempts(_ context.Context, id string) (int, error) {
	if err := s.fault("IncrementFailedAttempts"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return 0, apperr.NotFound("Usuario")
	}
	user.FailedAttempts++
	return user.FailedAttempts, nil
}

func (s *fakeStore) ResetFailedAttempts(_ context.Context, id string) error {
	if err := s.fault("ResetFailedAttempts"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		user.FailedAttempts = 0
	}
	return nil
}

func (s *fakeStore) SetActive(_ context.Context, id string, active bool) error {
	if err := s.fault("SetActive"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		user.Active = active
	}
	return nil
}

func (s *fakeStore) TouchLastLogin(_ context.Context, id string) error {
	if err := s.fault("TouchLastLogin"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		now := time.Now()
		user.LastLoginAt = &now
	}
	return nil
}

func (s *fakeStore) Unlock(_ context.Context, id string) (*auth.User, error) {
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

func (s *fakeStore) Create(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *fakeStore) List(_ context.Context) ([]*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]*auth.User, 0, len(s.users))
	for _, user := range s.users {
		clone := *user
		users = append(users, &clone)
	}
	return users, nil
}

func (s *fakeStore) Update(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return apperr.NotFound("Usuario")
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return apperr.NotFound("Usuario")
	}
	delete(s.users, id)
	return nil
}

func (s *fakeStore) UpdatePassword(_ context.Context, id, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		user.PasswordHash = newHash
	}
	return nil
}

func (s *fakeStore) SetResetToken(_ context.Context, id, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		user.ResetToken = &token
		user.ResetExpires = &expiresAt
	}
	return nil
}

func (s *fakeStore) FindByResetToken(_ context.Context, token string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ResetToken != nil && *user.ResetToken == token &&
			user.ResetExpires != nil && user.ResetExpires.After(time.Now()) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Token")
}

func (s *fakeStore) ClearResetToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		user.ResetToken = nil
		user.ResetExpires = nil
	}
	return nil
}

// snapshot returns a copy of the stored record for assertions.
func (s *fakeStore) snapshot(id string) auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

// # Fixtures

// plainComparer treats the stored hash as the plaintext password and counts
// invocations, so tests can assert the blocked branch skips comparison.
type plainComparer struct {
	calls atomic.Int64
}

func (c *plainComparer) compare(password, hash string) bool {
	c.calls.Add(1)
	return password == hash
}

func activeUser() *auth.User {
	return &auth.User{
		ID:           "0198d5e2-0000-7000-8000-000000000001",
		Email:        "ana@example.com",
		PasswordHash: "correct-password",
		FirstName:    "Ana",
		LastName:     "García",
		Role:         sec.RoleCitizen,
		Active:       true,
		RegisteredAt: time.Now(),
	}
}

func newService(store *fakeStore, comparer *plainComparer) *auth.Service {
	return auth.NewService(store).WithComparer(comparer.compare)
}

// # Authenticate

/*
TestAuthenticate_Success verifies the happy path: counter reset and login
timestamp on a correct password.
*/
func TestAuthenticate_Success(t *testing.T) {
	user := activeUser()
	user.FailedAttempts = 2
	store := newFakeStore(user)
	comparer := &plainComparer{}

	result, err := newService(store, comparer).Authenticate(context.Background(), "ana@example.com", "correct-password")
	require.NoError(t, err)

	assert.Equal(t, auth.OutcomeSuccess, result.Outcome)
	require.NotNil(t, result.User)
	assert.Equal(t, user.ID, result.User.ID)
	assert.Equal(t, 0, result.FailedAttempts)

	stored := store.snapshot(user.ID)
	assert.Equal(t, 0, stored.FailedAttempts)
	assert.NotNil(t, stored.LastLoginAt)
}

/*
TestAuthenticate_IdentifierForms verifies both lookup paths: case-insensitive
email and exact first name.
*/
func TestAuthenticate_IdentifierForms(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		outcome    auth.Outcome
	}{
		{"email_exact", "ana@example.com", auth.OutcomeSuccess},
		{"email_upper", "ANA@EXAMPLE.COM", auth.OutcomeSuccess},
		{"nombre_exact", "Ana", auth.OutcomeSuccess},
		{"nombre_wrong_case", "ana", auth.OutcomeNotFound},
		{"unknown", "nadie@example.com", auth.OutcomeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(activeUser())
			comparer := &plainComparer{}

			result, err := newService(store, comparer).Authenticate(context.Background(), tt.identifier, "correct-password")
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, result.Outcome)
		})
	}
}

/*
TestAuthenticate_CounterIncrement verifies that wrong passwords below the
threshold bump the counter without locking.
*/
func TestAuthenticate_CounterIncrement(t *testing.T) {
	user := activeUser()
	store := newFakeStore(user)
	comparer := &plainComparer{}
	service := newService(store, comparer)

	for attempt := 1; attempt < auth.MaxFailedAttempts; attempt++ {
		result, err := service.Authenticate(context.Background(), "ana@example.com", "wrong")
		require.NoError(t, err)

		assert.Equal(t, auth.OutcomeWrongPassword, result.Outcome)
		assert.Equal(t, attempt, result.FailedAttempts)
		assert.True(t, store.snapshot(user.ID).Active, "account must stay active below the threshold")
	}
}

/*
TestAuthenticate_LockoutAtThreshold verifies the account is deactivated
exactly when the counter reaches the maximum.
*/
func TestAuthenticate_LockoutAtThreshold(t *testing.T) {
	user := activeUser()
	store := newFakeStore(user)
	comparer := &plainComparer{}
	service := newService(store, comparer)

	var result *auth.Result
	var err error
	for attempt := 0; attempt < auth.MaxFailedAttempts; attempt++ {
		result, err = service.Authenticate(context.Background(), "ana@example.com", "wrong")
		require.NoError(t, err)
	}

	// The locking attempt itself still reports WrongPassword.
	assert.Equal(t, auth.OutcomeWrongPassword, result.Outcome)
	assert.Equal(t, auth.MaxFailedAttempts, result.FailedAttempts)

	stored := store.snapshot(user.ID)
	assert.False(t, stored.Active)
	assert.Equal(t, auth.MaxFailedAttempts, stored.FailedAttempts)
}

/*
TestAuthenticate_BlockedSkipsComparison verifies a deactivated account is
rejected before any password work — even with the correct password.
*/
func TestAuthenticate_BlockedSkipsComparison(t *testing.T) {
	user := activeUser()
	user.Active = false
	user.FailedAttempts = auth.MaxFailedAttempts
	store := newFakeStore(user)
	comparer := &plainComparer{}

	result, err := newService(store, comparer).Authenticate(context.Background(), "ana@example.com", "correct-password")
	require.NoError(t, err)

	assert.Equal(t, auth.OutcomeBlocked, result.Outcome)
	require.NotNil(t, result.User)
	assert.Equal(t, int64(0), comparer.calls.Load(), "blocked accounts must not reach the comparer")

	// The counter does not grow past the lockout.
	assert.Equal(t, auth.MaxFailedAttempts, store.snapshot(user.ID).FailedAttempts)
}

/*
TestAuthenticate_ConcurrentFailures verifies the increment is atomic: five
racing wrong attempts produce a counter of exactly five and a locked account.
*/
func TestAuthenticate_ConcurrentFailures(t *testing.T) {
	user := activeUser()
	store := newFakeStore(user)
	comparer := &plainComparer{}
	service := newService(store, comparer)

	const attempts = 5
	var wg sync.WaitGroup
	wg.Add(attempts)

	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, err := service.Authenticate(context.Background(), "ana@example.com", "wrong")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored := store.snapshot(user.ID)
	assert.Equal(t, attempts, stored.FailedAttempts, "no increment may be lost")
	assert.False(t, stored.Active)
}

/*
TestAuthenticate_StorageFaults verifies storage errors surface as errors —
never as a business outcome.
*/
func TestAuthenticate_StorageFaults(t *testing.T) {
	tests := []struct {
		name     string
		failOn   string
		password string
	}{
		{"lookup_fault", "FindByIdentifier", "correct-password"},
		{"increment_fault", "IncrementFailedAttempts", "wrong"},
		{"touch_fault", "TouchLastLogin", "correct-password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(activeUser())
			store.failOn = tt.failOn
			comparer := &plainComparer{}

			result, err := newService(store, comparer).Authenticate(context.Background(), "ana@example.com", tt.password)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, errStorage)
		})
	}
}

// # Register

/*
TestRegister_NormalizesEmail verifies new accounts start active with a zero
counter and a lowercased email.
*/
func TestRegister_NormalizesEmail(t *testing.T) {
	store := newFakeStore()
	service := auth.NewService(store)

	user, err := service.Register(context.Background(), auth.RegisterInput{
		Email:     "  Nuevo@Example.COM ",
		Password:  "segura123!",
		FirstName: "Nuevo",
		LastName:  "Usuario",
	})
	require.NoError(t, err)

	assert.Equal(t, "nuevo@example.com", user.Email)
	assert.Equal(t, sec.RoleCitizen, user.Role)
	assert.True(t, user.Active)
	assert.Equal(t, 0, user.FailedAttempts)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "segura123!", user.PasswordHash)
}

/*
TestRegister_DuplicateEmail verifies the client-safe Conflict on re-registration,
regardless of casing.
*/
func TestRegister_DuplicateEmail(t *testing.T) {
	store := newFakeStore(activeUser())
	service := auth.NewService(store)

	_, err := service.Register(context.Background(), auth.RegisterInput{
		Email:     "ANA@example.com",
		Password:  "segura123!",
		FirstName: "Otra",
		LastName:  "Ana",
	})
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, 409, appError.HTTPStatus)
}

// # Password Recovery

/*
TestPasswordReset_RoundTrip walks the full forgot/reset flow including token
single-use semantics.
*/
func TestPasswordReset_RoundTrip(t *testing.T) {
	user := activeUser()
	store := newFakeStore(user)
	service := auth.NewService(store)

	token, err := service.RequestPasswordReset(context.Background(), "ana@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, service.ResetPassword(context.Background(), token, "renovada123!"))

	stored := store.snapshot(user.ID)
	assert.Nil(t, stored.ResetToken, "token must be single use")
	assert.True(t, sec.CheckPasswordHash("renovada123!", stored.PasswordHash))

	// Replaying the consumed token fails closed.
	err = service.ResetPassword(context.Background(), token, "otra123!")
	require.Error(t, err)
	assert.Equal(t, 401, apperr.As(err).HTTPStatus)
}

/*
TestPasswordReset_UnknownEmail verifies enumeration resistance: no token, no error.
*/
func TestPasswordReset_UnknownEmail(t *testing.T) {
	service := auth.NewService(newFakeStore())

	token, err := service.RequestPasswordReset(context.Background(), "nadie@example.com")
	require.NoError(t, err)
	assert.Empty(t, token)
}
