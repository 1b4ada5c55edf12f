package event

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
)

// Gate is the deduplication gate in front of stock-mutating handlers.
// Unlike a mark-first guard it records the key only after the mutation
// succeeded: a handler that fails mid-way leaves no record, so redelivery
// runs it again. Begin checks, Commit records.
type Gate struct {
	store  shared.IdempotencyStore
	config shared.DedupConfig
	logger *zap.Logger
}

// NewGate creates a gate over the given store.
func NewGate(store shared.IdempotencyStore, config shared.DedupConfig, logger *zap.Logger) *Gate {
	return &Gate{store: store, config: config, logger: logger}
}

// Begin checks whether key was already committed inside the dedup window.
// The returned ticket reports freshness and carries the Commit side.
func (g *Gate) Begin(ctx context.Context, key string) (*Ticket, error) {
	if !g.config.Enabled {
		return &Ticket{gate: g, key: key, fresh: true}, nil
	}

	seen, err := g.store.IsProcessed(ctx, key)
	if err != nil {
		return nil, err
	}
	if seen {
		g.logger.Info("duplicate delivery suppressed", zap.String("dedup_key", key))
	}
	return &Ticket{gate: g, key: key, fresh: !seen}, nil
}

// Ticket is the result of a gate check for one delivery.
type Ticket struct {
	gate  *Gate
	key   string
	fresh bool
}

// Fresh reports whether the mutation should run.
func (t *Ticket) Fresh() bool {
	return t.fresh
}

// Commit records the key after a successful mutation. A commit failure is
// logged, not returned: the mutation already happened and must be acked.
func (t *Ticket) Commit(ctx context.Context) {
	if !t.gate.config.Enabled || !t.fresh {
		return
	}
	ttl := t.gate.config.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if _, err := t.gate.store.MarkProcessed(ctx, t.key, ttl); err != nil {
		t.gate.logger.Warn("failed to record dedup key",
			zap.String("dedup_key", t.key),
			zap.Error(err))
	}
}
