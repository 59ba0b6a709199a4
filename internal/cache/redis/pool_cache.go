package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/colosseo/arenabook/internal/domain"
)

const summaryTTL = 5 * time.Second

// PoolCache implements domain.PoolCache using JSON-serialized pool summaries.
// The short TTL keeps published odds close to live while absorbing the read
// load of spectator polling.
//
// Key schema:
//
//	pool:summary:{id} - JSON-encoded PoolSummary
type PoolCache struct {
	rdb *redis.Client
}

// NewPoolCache creates a PoolCache backed by the given Client.
func NewPoolCache(c *Client) *PoolCache {
	return &PoolCache{rdb: c.Underlying()}
}

func summaryKey(id string) string { return "pool:summary:" + id }

// SetSummary stores a pool summary with a short TTL.
func (pc *PoolCache) SetSummary(ctx context.Context, s domain.PoolSummary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("redis: marshal summary %s: %w", s.ID, err)
	}
	if err := pc.rdb.Set(ctx, summaryKey(s.ID), data, summaryTTL).Err(); err != nil {
		return fmt.Errorf("redis: set summary %s: %w", s.ID, err)
	}
	return nil
}

// GetSummary retrieves a cached pool summary.
// It returns domain.ErrNotFound when the key does not exist or has expired.
func (pc *PoolCache) GetSummary(ctx context.Context, poolID string) (domain.PoolSummary, error) {
	data, err := pc.rdb.Get(ctx, summaryKey(poolID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PoolSummary{}, domain.ErrNotFound
		}
		return domain.PoolSummary{}, fmt.Errorf("redis: get summary %s: %w", poolID, err)
	}

	var s domain.PoolSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.PoolSummary{}, fmt.Errorf("redis: unmarshal summary %s: %w", poolID, err)
	}
	return s, nil
}

// Invalidate removes a pool summary so the next read recomputes it.
func (pc *PoolCache) Invalidate(ctx context.Context, poolID string) error {
	if err := pc.rdb.Del(ctx, summaryKey(poolID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate summary %s: %w", poolID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PoolCache = (*PoolCache)(nil)
