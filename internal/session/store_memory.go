// Copyright (c) 2026 Civilex. All rights reserved.

package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements [Store] with an in-process map.
//
// It exists for tests and single-node development; production deployments use
// [RedisStore] so sessions survive restarts and are shared across replicas.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	data      Data
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory session store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the identity for a session ID, honoring expiry lazily.
func (store *MemoryStore) Get(ctx context.Context, sessionID string) (*Data, error) {
	store.mu.RLock()
	entry, found := store.entries[sessionID]
	store.mu.RUnlock()

	if !found {
		return nil, ErrNotFound
	}

	if store.now().After(entry.expiresAt) {
		// Expired entries are removed on next Put/Delete; a stale read is
		// simply a miss.
		return nil, ErrNotFound
	}

	data := entry.data
	return &data, nil
}

// Put stores the identity and renews the TTL.
func (store *MemoryStore) Put(ctx context.Context, sessionID string, data *Data) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.entries[sessionID] = memoryEntry{
		data:      *data,
		expiresAt: store.now().Add(store.ttl),
	}
	return nil
}

// Delete removes the session. Absent keys are not an error.
func (store *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.entries, sessionID)
	return nil
}
