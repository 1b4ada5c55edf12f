package shared

import (
	"context"
	"time"
)

// IdempotencyStore records completed handler executions so that redelivered
// messages do not reapply their side effects. Records must be durable: the
// same message can arrive again after a crash between mutation and ack.
type IdempotencyStore interface {
	// MarkProcessed records a key with a TTL.
	// Returns true if the key was newly recorded, false if it already existed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether a key has already been recorded.
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// DedupConfig holds configuration for the deduplication gate
type DedupConfig struct {
	// TTL is the lifetime of a dedup record. It must outlive any plausible
	// redelivery window (hours, not seconds).
	TTL time.Duration

	// Enabled determines whether deduplication is enforced
	Enabled bool
}

// DefaultDedupConfig returns the default deduplication configuration
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
