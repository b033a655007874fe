package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clinicbook/backend/internal/domain"
)

// SlotCache is a short-lived read cache for resolved slot lists. A miss or a
// cache failure is never an error for the caller; the resolver recomputes.
type SlotCache interface {
	Get(ctx context.Context, key string) ([]domain.Slot, bool)
	Set(ctx context.Context, key string, slots []domain.Slot)
	// Invalidate drops every cached range for the doctor.
	Invalidate(ctx context.Context, doctorID string)
}

// Key builds the cache key for one doctor's resolved range. Keys share a
// per-doctor prefix so invalidation can match them with one scan.
func Key(doctorID string, from, to time.Time, duration time.Duration) string {
	return fmt.Sprintf("slots:%s:%s:%s:%d", doctorID, from.Format("2006-01-02"), to.Format("2006-01-02"), int(duration.Minutes()))
}

type RedisSlotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSlotCache(rdb *redis.Client, ttl time.Duration) *RedisSlotCache {
	return &RedisSlotCache{rdb: rdb, ttl: ttl}
}

func (c *RedisSlotCache) Get(ctx context.Context, key string) ([]domain.Slot, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var slots []domain.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, false
	}
	return slots, true
}

func (c *RedisSlotCache) Set(ctx context.Context, key string, slots []domain.Slot) {
	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

func (c *RedisSlotCache) Invalidate(ctx context.Context, doctorID string) {
	pattern := "slots:" + doctorID + ":*"
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if iter.Err() != nil || len(keys) == 0 {
		return
	}
	_ = c.rdb.Del(ctx, keys...).Err()
}
