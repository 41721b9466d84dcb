// Copyright (c) 2026 Civilex. All rights reserved.

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilex/portal/internal/platform/constants"
	"github.com/civilex/portal/internal/session"
)

func sampleData() *session.Data {
	return &session.Data{
		UserID:    "0198d5e2-0000-7000-8000-000000000001",
		Email:     "ana@example.com",
		FirstName: "Ana",
		LastName:  "García",
		Role:      "ciudadano",
	}
}

// newRedisStore spins up an embedded Redis and returns the store plus the
// miniredis handle for clock manipulation.
func newRedisStore(t *testing.T, ttl time.Duration) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return session.NewRedisStore(client, ttl), server
}

/*
TestRedisStore_RoundTrip verifies Put/Get/Delete against embedded Redis.
*/
func TestRedisStore_RoundTrip(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "sid-1", sampleData()))

	data, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", data.Email)
	assert.Equal(t, "ciudadano", data.Role)

	require.NoError(t, store.Delete(ctx, "sid-1"))

	_, err = store.Get(ctx, "sid-1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

/*
TestRedisStore_Expiry verifies the Redis TTL is the session expiry.
*/
func TestRedisStore_Expiry(t *testing.T) {
	store, server := newRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "sid-1", sampleData()))

	// Advance miniredis's clock past the TTL.
	server.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "sid-1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

/*
TestRedisStore_OverwriteRenews verifies Put overwrites the identity and
renews the TTL — the resync mechanism the reconciler relies on.
*/
func TestRedisStore_OverwriteRenews(t *testing.T) {
	store, server := newRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "sid-1", sampleData()))

	server.FastForward(30 * time.Second)

	other := sampleData()
	other.Email = "otro@example.com"
	require.NoError(t, store.Put(ctx, "sid-1", other))

	// The original TTL would have expired here; the rewrite renewed it.
	server.FastForward(45 * time.Second)

	data, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "otro@example.com", data.Email)
}

/*
TestRedisStore_CorruptEntry verifies a malformed payload reads as a miss
instead of an error.
*/
func TestRedisStore_CorruptEntry(t *testing.T) {
	store, server := newRedisStore(t, time.Minute)

	require.NoError(t, server.Set(constants.RedisPrefixSession+"sid-1", "{not json"))

	_, err := store.Get(context.Background(), "sid-1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

/*
TestRedisStore_DeleteIdempotent verifies deleting an absent session succeeds.
*/
func TestRedisStore_DeleteIdempotent(t *testing.T) {
	store, _ := newRedisStore(t, time.Minute)
	assert.NoError(t, store.Delete(context.Background(), "never-existed"))
}

/*
TestMemoryStore covers the in-process implementation used by tests and
single-node development.
*/
func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round_trip", func(t *testing.T) {
		store := session.NewMemoryStore(time.Hour)

		require.NoError(t, store.Put(ctx, "sid-1", sampleData()))

		data, err := store.Get(ctx, "sid-1")
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", data.Email)

		require.NoError(t, store.Delete(ctx, "sid-1"))
		_, err = store.Get(ctx, "sid-1")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("expiry", func(t *testing.T) {
		store := session.NewMemoryStore(10 * time.Millisecond)

		require.NoError(t, store.Put(ctx, "sid-1", sampleData()))
		time.Sleep(25 * time.Millisecond)

		_, err := store.Get(ctx, "sid-1")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("delete_idempotent", func(t *testing.T) {
		store := session.NewMemoryStore(time.Hour)
		assert.NoError(t, store.Delete(ctx, "never-existed"))
	})
}

/*
TestClaimsRoundTrip verifies the snapshot/rebuild mapping between token
claims and session data preserves every identity field.
*/
func TestClaimsRoundTrip(t *testing.T) {
	data := sampleData()

	claims := data.Claims()
	rebuilt := session.FromClaims(claims)

	assert.Equal(t, data, rebuilt)
}
