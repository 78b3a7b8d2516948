// Package redis implements the cache-layer stores.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/studyseal/study-hub/internal/domain/quest"
	"github.com/studyseal/study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUEST CACHE
// ══════════════════════════════════════════════════════════════════════════════

// QuestCache is the read-through cache for weekly quest sets. Session-end
// invalidates the key after progress updates, so a stale read can only lag
// by the cache TTL under races, never indefinitely.
type QuestCache struct {
	cache *Cache
}

// NewQuestCache creates a new QuestCache.
func NewQuestCache(cache *Cache) *QuestCache {
	return &QuestCache{cache: cache}
}

// Get returns the cached set, or (nil, nil) on a miss.
func (c *QuestCache) Get(ctx context.Context, userID shared.UserID, weekID shared.WeekID) (*quest.WeeklyQuestSet, error) {
	var set quest.WeeklyQuestSet

	err := c.cache.Get(ctx, QuestsKey(userID.String(), weekID.String()), &set)
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("quest_cache: failed to load set: %w", err)
	}

	return &set, nil
}

// Set caches a quest set.
func (c *QuestCache) Set(ctx context.Context, set *quest.WeeklyQuestSet) error {
	key := QuestsKey(set.UserID.String(), set.WeekID.String())
	if err := c.cache.Set(ctx, key, set, TTLQuestCache); err != nil {
		return fmt.Errorf("quest_cache: failed to store set: %w", err)
	}
	return nil
}

// Invalidate drops the cached set after a write.
func (c *QuestCache) Invalidate(ctx context.Context, userID shared.UserID, weekID shared.WeekID) error {
	return c.cache.Delete(ctx, QuestsKey(userID.String(), weekID.String()))
}
