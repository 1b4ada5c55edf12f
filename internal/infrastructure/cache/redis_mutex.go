package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wms/backend/internal/domain/shared"
)

const mutexKeyPrefix = "stock:lock:"

// releaseScript deletes the lock only when the stored token matches,
// so an expired holder cannot release a lock re-acquired by another.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisKeyedMutex implements shared.KeyedMutex with Redis SET NX PX.
// The lease bounds how long a crashed holder can block others.
type RedisKeyedMutex struct {
	client        *redis.Client
	retryInterval time.Duration
}

// NewRedisKeyedMutex creates a mutex backed by an existing Redis client.
func NewRedisKeyedMutex(client *redis.Client) *RedisKeyedMutex {
	return &RedisKeyedMutex{
		client:        client,
		retryInterval: 50 * time.Millisecond,
	}
}

// Acquire takes the lock for key, polling until wait elapses.
// Returns shared.ErrLockTimeout when the lock stays held past the wait.
func (m *RedisKeyedMutex) Acquire(ctx context.Context, key string, wait, lease time.Duration) (func(context.Context) error, error) {
	redisKey := mutexKeyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := m.client.SetNX(ctx, redisKey, token, lease).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			release := func(ctx context.Context) error {
				if err := releaseScript.Run(ctx, m.client, []string{redisKey}, token).Err(); err != nil {
					return fmt.Errorf("release lock %s: %w", key, err)
				}
				return nil
			}
			return release, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock %s held past %s: %w", key, wait, shared.ErrLockTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.retryInterval):
		}
	}
}

var _ shared.KeyedMutex = (*RedisKeyedMutex)(nil)
