package messaging

import (
	"context"

	redisstore "github.com/studyseal/study-hub/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDIS ADAPTER
// ══════════════════════════════════════════════════════════════════════════════

// CacheRedisClient adapts the cache layer's client to the RedisClient
// interface used by RedisEventBus.
type CacheRedisClient struct {
	cache *redisstore.Cache
}

// NewCacheRedisClient wraps a cache connection for pub/sub use.
func NewCacheRedisClient(cache *redisstore.Cache) *CacheRedisClient {
	return &CacheRedisClient{cache: cache}
}

// Publish sends a message to a channel. Messages are published as-is; the
// event bus already serialized its envelope.
func (c *CacheRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return c.cache.Client().Publish(ctx, channel, message).Err()
}

// Subscribe listens on the given channels and forwards messages until the
// context is cancelled.
func (c *CacheRedisClient) Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error) {
	pubsub := c.cache.Client().Subscribe(ctx, channels...)

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan RedisMessage)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				out <- RedisMessage{Channel: msg.Channel, Payload: msg.Payload}
			}
		}
	}()

	return out, nil
}

// Close is a no-op; the underlying cache connection is owned elsewhere.
func (c *CacheRedisClient) Close() error {
	return nil
}
