// Copyright (c) 2026 Civilex. All rights reserved.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/civilex/portal/internal/platform/constants"
)

// RedisStore implements [Store] on top of a Redis client.
//
// Sessions are stored as JSON under "auth:session:<sid>" with a TTL, so the
// store never needs an explicit sweep: Redis expiry IS the session expiry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
//
// ttl should match the identity token lifetime so both credentials expire
// together.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

/*
Get retrieves and decodes the identity for a session ID.

Returns:
  - *Data: Stored identity snapshot
  - error: ErrNotFound when the key is absent or expired, or connectivity errors
*/
func (store *RedisStore) Get(ctx context.Context, sessionID string) (*Data, error) {
	key := constants.RedisPrefixSession + sessionID

	raw, err := store.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session_redis_get_failed: %w", err)
	}

	data := &Data{}
	if err := json.Unmarshal([]byte(raw), data); err != nil {
		// A corrupt entry is useless; treat it as absent rather than
		// poisoning every request that carries this sid.
		return nil, ErrNotFound
	}

	return data, nil
}

/*
Put stores the identity for a session ID and renews its TTL.
*/
func (store *RedisStore) Put(ctx context.Context, sessionID string, data *Data) error {
	key := constants.RedisPrefixSession + sessionID

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session_redis_encode_failed: %w", err)
	}

	if err := store.client.Set(ctx, key, raw, store.ttl).Err(); err != nil {
		return fmt.Errorf("session_redis_put_failed: %w", err)
	}

	return nil
}

/*
Delete removes the session. Absent keys are not an error.
*/
func (store *RedisStore) Delete(ctx context.Context, sessionID string) error {
	key := constants.RedisPrefixSession + sessionID

	if err := store.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("session_redis_delete_failed: %w", err)
	}

	return nil
}
