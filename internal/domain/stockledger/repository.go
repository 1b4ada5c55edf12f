package stockledger

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for stock ledger persistence.
//
// ApplyDelta is the only mutation primitive: a single conditional row update
// that either commits with all invariants intact or fails without touching
// the row. Plain read-modify-write against ledger rows is a correctness bug.
type Repository interface {
	// FindRow finds the row for an exact key
	FindRow(ctx context.Context, key RowKey) (*StockTotal, error)

	// FindByID finds a row by its primary key
	FindByID(ctx context.Context, id uuid.UUID) (*StockTotal, error)

	// GetOrCreate returns the row for a key, creating a zero row if absent.
	// Creation races are resolved by the database, not the caller.
	GetOrCreate(ctx context.Context, key RowKey) (*StockTotal, error)

	// ApplyDelta atomically adds the deltas to a row. It succeeds only if
	// the resulting total >= 0, reserve >= 0 and reserve <= total;
	// otherwise it returns shared.ErrPreconditionFailed and changes
	// nothing.
	ApplyDelta(ctx context.Context, rowID uuid.UUID, totalDelta, reserveDelta int) error

	// ListReserved returns every row of a product identity at a profile,
	// across storage locations, that carries reserve. Insertion order.
	ListReserved(ctx context.Context, profileID uuid.UUID, line LineIdentity) ([]StockTotal, error)

	// ListByProduct returns all rows for a product at a profile
	ListByProduct(ctx context.Context, profileID, productID uuid.UUID) ([]StockTotal, error)
}
