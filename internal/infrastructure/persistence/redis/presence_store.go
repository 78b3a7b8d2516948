// Package redis implements the cache-layer stores.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyseal/study-hub/internal/domain/presence"
	"github.com/studyseal/study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENCE STORE
// ══════════════════════════════════════════════════════════════════════════════

// keyPresenceIndex is a sorted set of user IDs scored by last-activity time,
// so the cleanup job can sweep stale records without scanning keys.
const keyPresenceIndex = "presence:index"

// PresenceStore implements presence.Store on Redis. Records carry a TTL
// comfortably past the derivation timeouts; expiry and the index sweep are
// both hygiene, never correctness, because a missing record derives as
// offline.
type PresenceStore struct {
	cache *Cache
}

// NewPresenceStore creates a new PresenceStore.
func NewPresenceStore(cache *Cache) *PresenceStore {
	return &PresenceStore{cache: cache}
}

// Get loads a user's record. A missing record returns a zero Record with
// the user id set.
func (s *PresenceStore) Get(ctx context.Context, userID shared.UserID) (presence.Record, error) {
	var record presence.Record

	err := s.cache.Get(ctx, PresenceKey(userID.String()), &record)
	if errors.Is(err, ErrCacheMiss) {
		return presence.Record{UserID: userID}, nil
	}
	if err != nil {
		return presence.Record{}, fmt.Errorf("presence: failed to load record: %w", err)
	}

	record.UserID = userID
	return record, nil
}

// GetMany loads records for a batch of users with a single MGET. Users with
// no record map to a zero Record.
func (s *PresenceStore) GetMany(ctx context.Context, userIDs []shared.UserID) (map[shared.UserID]presence.Record, error) {
	result := make(map[shared.UserID]presence.Record, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = PresenceKey(id.String())
	}

	values, err := s.cache.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("presence: failed to load records: %w", err)
	}

	for i, id := range userIDs {
		record := presence.Record{UserID: id}
		if raw, ok := values[keys[i]]; ok {
			if err := json.Unmarshal([]byte(raw), &record); err == nil {
				record.UserID = id
			}
		}
		result[id] = record
	}

	return result, nil
}

// Put stores a record, refreshing its TTL and the cleanup index.
func (s *PresenceStore) Put(ctx context.Context, r presence.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	activity := r.LastActivity
	if activity.IsZero() {
		activity = time.Now().UTC()
	}

	pipe := s.cache.Client().Pipeline()
	pipe.Set(ctx, PresenceKey(r.UserID.String()), data, TTLPresenceRecord)
	pipe.ZAdd(ctx, keyPresenceIndex, redis.Z{
		Score:  float64(activity.Unix()),
		Member: r.UserID.String(),
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence: failed to store record: %w", err)
	}

	return nil
}

// DeleteStale removes records whose activity timestamp predates the cutoff.
func (s *PresenceStore) DeleteStale(ctx context.Context, cutoffSeconds int64) (int, error) {
	client := s.cache.Client()
	max := strconv.FormatInt(cutoffSeconds, 10)

	stale, err := client.ZRangeByScore(ctx, keyPresenceIndex, &redis.ZRangeBy{
		Min: "-inf",
		Max: max,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("presence: failed to list stale records: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	keys := make([]string, len(stale))
	for i, id := range stale {
		keys[i] = PresenceKey(id)
	}

	pipe := client.Pipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRemRangeByScore(ctx, keyPresenceIndex, "-inf", max)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("presence: failed to delete stale records: %w", err)
	}

	return len(stale), nil
}
