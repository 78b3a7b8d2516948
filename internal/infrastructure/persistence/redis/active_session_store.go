// Package redis implements the cache-layer stores.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/studyseal/study-hub/internal/domain/session"
	"github.com/studyseal/study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVE SESSION STORE
// ══════════════════════════════════════════════════════════════════════════════

// ActiveSessionStore implements session.ActiveStore on Redis: one snapshot
// per user while a timer runs, cleared on session end. The TTL only catches
// processes that died mid-session.
type ActiveSessionStore struct {
	cache *Cache
}

// NewActiveSessionStore creates a new ActiveSessionStore.
func NewActiveSessionStore(cache *Cache) *ActiveSessionStore {
	return &ActiveSessionStore{cache: cache}
}

// SetActive stores the snapshot for a just-started session.
func (s *ActiveSessionStore) SetActive(ctx context.Context, userID shared.UserID, active session.ActiveSession) error {
	err := s.cache.Set(ctx, ActiveSessionKey(userID.String()), active, TTLActiveSession)
	if err != nil {
		return fmt.Errorf("active_session: failed to store snapshot: %w", err)
	}
	return nil
}

// GetActive returns the user's snapshot, or nil when no timer is running.
func (s *ActiveSessionStore) GetActive(ctx context.Context, userID shared.UserID) (*session.ActiveSession, error) {
	var active session.ActiveSession

	err := s.cache.Get(ctx, ActiveSessionKey(userID.String()), &active)
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active_session: failed to load snapshot: %w", err)
	}

	return &active, nil
}

// ClearActive removes the snapshot when the session ends.
func (s *ActiveSessionStore) ClearActive(ctx context.Context, userID shared.UserID) error {
	return s.cache.Delete(ctx, ActiveSessionKey(userID.String()))
}
