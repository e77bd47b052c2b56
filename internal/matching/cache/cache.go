// Package cache provides a Redis-backed snapshot cache for donor rankings.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lifedrop/internal/matching"
	id "lifedrop/pkg/domain"
)

const rankKeyPrefix = "rank:request:"

// RedisRankCache stores ranked matches as a JSON blob with a short TTL.
// Rankings go stale as donors respond, so the TTL should stay in the tens
// of seconds.
type RedisRankCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRankCache constructs a Redis-backed rank cache.
func NewRedisRankCache(client *redis.Client, ttl time.Duration) *RedisRankCache {
	return &RedisRankCache{client: client, ttl: ttl}
}

func (c *RedisRankCache) Get(ctx context.Context, requestID id.RequestID) ([]matching.Match, bool, error) {
	raw, err := c.client.Get(ctx, rankKeyPrefix+requestID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("rank cache get: %w", err)
	}
	var matches []matching.Match
	if err := json.Unmarshal(raw, &matches); err != nil {
		return nil, false, fmt.Errorf("rank cache decode: %w", err)
	}
	return matches, true, nil
}

func (c *RedisRankCache) Set(ctx context.Context, requestID id.RequestID, matches []matching.Match) error {
	raw, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("rank cache encode: %w", err)
	}
	if err := c.client.Set(ctx, rankKeyPrefix+requestID.String(), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("rank cache set: %w", err)
	}
	return nil
}

// Invalidate drops the snapshot for a request. Lifecycle writes call it so
// a donor who just responded disappears from the next poll.
func (c *RedisRankCache) Invalidate(ctx context.Context, requestID id.RequestID) error {
	if err := c.client.Del(ctx, rankKeyPrefix+requestID.String()).Err(); err != nil {
		return fmt.Errorf("rank cache invalidate: %w", err)
	}
	return nil
}
