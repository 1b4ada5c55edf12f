package shared

import (
	"context"
	"time"
)

// KeyedMutex provides mutual exclusion scoped to an arbitrary string key.
// It is used where a handler must select among several ledger rows and then
// mutate the chosen one: a single-row conditional update is not enough to
// keep two concurrent pickers from draining the same row.
type KeyedMutex interface {
	// Acquire blocks until the lock for key is held, the wait duration
	// elapses (ErrLockTimeout) or ctx is done. The returned release function
	// is safe to call exactly once. The lease bounds how long a crashed
	// holder can keep the key locked.
	Acquire(ctx context.Context, key string, wait, lease time.Duration) (release func(ctx context.Context) error, err error)
}
