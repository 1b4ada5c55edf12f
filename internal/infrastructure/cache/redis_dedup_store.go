package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wms/backend/internal/domain/shared"
)

const dedupKeyPrefix = "stock:dedup:"

// RedisDedupStore implements shared.IdempotencyStore on Redis.
// Suitable for distributed deployments where several consumers share
// one deduplication window.
type RedisDedupStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisDedupStore creates a store backed by an existing Redis client.
func NewRedisDedupStore(client *redis.Client) *RedisDedupStore {
	return &RedisDedupStore{client: client, keyPrefix: dedupKeyPrefix}
}

// MarkProcessed records the key atomically via SETNX with a TTL.
// Returns true when the key was newly recorded, false when a previous
// delivery already claimed it.
func (s *RedisDedupStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark dedup key: %w", err)
	}
	return ok, nil
}

// IsProcessed reports whether a delivery with this key was already recorded.
func (s *RedisDedupStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("check dedup key: %w", err)
	}
	return n > 0, nil
}

// Close is a no-op: the Redis client is owned by the caller.
func (s *RedisDedupStore) Close() error {
	return nil
}

var _ shared.IdempotencyStore = (*RedisDedupStore)(nil)
