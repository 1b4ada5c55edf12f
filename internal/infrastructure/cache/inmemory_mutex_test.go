package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/backend/internal/domain/shared"
)

func TestInMemoryKeyedMutex_AcquireAndRelease(t *testing.T) {
	m := NewInMemoryKeyedMutex()
	ctx := context.Background()

	release, err := m.Acquire(ctx, "stock:p1:offer1", 100*time.Millisecond, time.Second)
	require.NoError(t, err)

	// Held lock times out a second acquirer.
	_, err = m.Acquire(ctx, "stock:p1:offer1", 20*time.Millisecond, time.Second)
	assert.True(t, errors.Is(err, shared.ErrLockTimeout))

	require.NoError(t, release(ctx))

	release2, err := m.Acquire(ctx, "stock:p1:offer1", 20*time.Millisecond, time.Second)
	require.NoError(t, err)
	require.NoError(t, release2(ctx))
}

func TestInMemoryKeyedMutex_IndependentKeys(t *testing.T) {
	m := NewInMemoryKeyedMutex()
	ctx := context.Background()

	r1, err := m.Acquire(ctx, "stock:p1:offer1", 20*time.Millisecond, time.Second)
	require.NoError(t, err)
	defer r1(ctx)

	r2, err := m.Acquire(ctx, "stock:p1:offer2", 20*time.Millisecond, time.Second)
	require.NoError(t, err)
	defer r2(ctx)
}

func TestInMemoryKeyedMutex_LeaseExpiryUnblocks(t *testing.T) {
	m := NewInMemoryKeyedMutex()
	ctx := context.Background()

	// Holder never releases; its lease expires.
	_, err := m.Acquire(ctx, "stock:p1:offer1", 20*time.Millisecond, 30*time.Millisecond)
	require.NoError(t, err)

	release, err := m.Acquire(ctx, "stock:p1:offer1", 200*time.Millisecond, time.Second)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestInMemoryKeyedMutex_StaleReleaseKeepsSuccessorLock(t *testing.T) {
	m := NewInMemoryKeyedMutex()
	ctx := context.Background()

	// First holder's lease expires without a release.
	staleRelease, err := m.Acquire(ctx, "stock:p1:offer1", 20*time.Millisecond, 20*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	// Second holder takes over the expired key.
	release2, err := m.Acquire(ctx, "stock:p1:offer1", 20*time.Millisecond, time.Second)
	require.NoError(t, err)

	// The stale release must not free the second holder's lock.
	require.NoError(t, staleRelease(ctx))
	_, err = m.Acquire(ctx, "stock:p1:offer1", 20*time.Millisecond, time.Second)
	assert.True(t, errors.Is(err, shared.ErrLockTimeout))

	// The real holder can still release.
	require.NoError(t, release2(ctx))
	release3, err := m.Acquire(ctx, "stock:p1:offer1", 20*time.Millisecond, time.Second)
	require.NoError(t, err)
	require.NoError(t, release3(ctx))
}

func TestInMemoryKeyedMutex_ContextCancellation(t *testing.T) {
	m := NewInMemoryKeyedMutex()

	_, err := m.Acquire(context.Background(), "stock:p1:offer1", time.Second, time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = m.Acquire(ctx, "stock:p1:offer1", time.Minute, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInMemoryKeyedMutex_SerializesCriticalSection(t *testing.T) {
	m := NewInMemoryKeyedMutex()
	ctx := context.Background()

	var counter, max, active int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Acquire(ctx, "stock:contested", 5*time.Second, time.Minute)
			require.NoError(t, err)

			mu.Lock()
			active++
			if active > max {
				max = active
			}
			counter++
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()

			require.NoError(t, release(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, counter)
	assert.Equal(t, 1, max)
}
