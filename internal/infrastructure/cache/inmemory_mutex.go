package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/shared"
)

// lockHolder records who holds a key and until when.
type lockHolder struct {
	token  string
	expiry time.Time
}

// InMemoryKeyedMutex implements shared.KeyedMutex for single-instance
// deployments and tests. The lease is honored the same way as the Redis
// variant: a holder that never releases stops blocking once it expires,
// and a stale release cannot free a lock re-acquired by another holder.
type InMemoryKeyedMutex struct {
	mu            sync.Mutex
	holders       map[string]lockHolder
	retryInterval time.Duration
}

// NewInMemoryKeyedMutex creates an in-process keyed mutex.
func NewInMemoryKeyedMutex() *InMemoryKeyedMutex {
	return &InMemoryKeyedMutex{
		holders:       make(map[string]lockHolder),
		retryInterval: 5 * time.Millisecond,
	}
}

// Acquire takes the lock for key, polling until wait elapses.
func (m *InMemoryKeyedMutex) Acquire(ctx context.Context, key string, wait, lease time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		if m.tryAcquire(key, token, lease) {
			release := func(context.Context) error {
				m.mu.Lock()
				defer m.mu.Unlock()
				// Same contract as the Redis release script: only the
				// holder that stored the token may delete the entry.
				if h, held := m.holders[key]; held && h.token == token {
					delete(m.holders, key)
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

func (m *InMemoryKeyedMutex) tryAcquire(key, token string, lease time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, held := m.holders[key]; held && time.Now().Before(h.expiry) {
		return false
	}
	m.holders[key] = lockHolder{token: token, expiry: time.Now().Add(lease)}
	return true
}

var _ shared.KeyedMutex = (*InMemoryKeyedMutex)(nil)
