package stockrequest

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for stock request persistence.
// Append persists the request together with its newest chain event and the
// aggregate's pending domain events (outbox) in one transaction.
type Repository interface {
	// FindByID loads a request with its current event and lines
	FindByID(ctx context.Context, id uuid.UUID) (*StockRequest, error)

	// FindByNumber loads a request by its human-readable number
	FindByNumber(ctx context.Context, number string) (*StockRequest, error)

	// FindByOrderID loads the request whose current event links the order
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*StockRequest, error)

	// FindEventByID loads one chain event with its lines
	FindEventByID(ctx context.Context, id uuid.UUID) (*Event, error)

	// ListByStatus returns requests whose current event has the given
	// status, newest first, with the total count for pagination
	ListByStatus(ctx context.Context, status Status, page, pageSize int) ([]StockRequest, int64, error)

	// Create persists a new request with its first event
	Create(ctx context.Context, req *StockRequest) error

	// Append persists a freshly built chain event and retargets the
	// request's current pointer
	Append(ctx context.Context, req *StockRequest, event *Event) error
}
