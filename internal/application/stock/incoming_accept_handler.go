package stock

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stockledger"
	"github.com/wms/backend/internal/domain/stockrequest"
)

// IncomingAcceptHandler counts received goods into the stock ledger.
//
// It fires on two transitions: Warehouse -> Incoming (a receipt was
// physically confirmed) and the reversal re-entry, where a request that was
// already Completed came back through Incoming and is now cancelled. In both
// cases every product line is added to the row for its exact key, storage
// included, creating zero rows as needed.
type IncomingAcceptHandler struct {
	requests stockrequest.Repository
	ledger   stockledger.Repository
	gate     DedupGate
	logger   *zap.Logger
}

// NewIncomingAcceptHandler creates the receipt handler
func NewIncomingAcceptHandler(requests stockrequest.Repository, ledger stockledger.Repository, gate DedupGate, logger *zap.Logger) *IncomingAcceptHandler {
	return &IncomingAcceptHandler{requests: requests, ledger: ledger, gate: gate, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *IncomingAcceptHandler) EventTypes() []string {
	return []string{stockrequest.EventTypeStatusChanged}
}

// Handle processes a status transition message
func (h *IncomingAcceptHandler) Handle(ctx context.Context, e shared.DomainEvent) error {
	t, err := loadTransition(ctx, h.requests, e)
	if err != nil {
		return err
	}

	fire, err := h.applies(ctx, t)
	if err != nil {
		return err
	}
	if !fire {
		return nil
	}

	ticket, err := h.gate.Begin(ctx, t.dedupKey("incoming_accept"))
	if err != nil {
		return err
	}
	if !ticket.Fresh() {
		return nil
	}

	for _, line := range t.event.Lines {
		if err := h.addLine(ctx, t.event.ProfileID, line); err != nil {
			h.logger.Error("incoming accept: line not counted",
				zap.String("event_id", t.event.ID.String()),
				zap.String("product_id", line.ProductID.String()),
				zap.Int("quantity", line.Quantity),
				zap.Error(err))
			continue
		}
		h.logger.Info("stock counted in",
			zap.String("request_number", t.event.Number),
			zap.String("product_id", line.ProductID.String()),
			zap.Int("quantity", line.Quantity),
			zap.String("storage", line.Storage))
	}

	ticket.Commit(ctx)
	return nil
}

func (h *IncomingAcceptHandler) addLine(ctx context.Context, profileID uuid.UUID, line stockrequest.ProductLine) error {
	row, err := h.ledger.GetOrCreate(ctx, lineRowKey(profileID, line))
	if err != nil {
		return err
	}
	return h.ledger.ApplyDelta(ctx, row.ID, line.Quantity, 0)
}

// applies reports whether the transition is a receipt this handler counts.
// The reversal case needs the event two steps back: Completed -> Incoming ->
// Cancel means the stock physically returned before the cancellation.
func (h *IncomingAcceptHandler) applies(ctx context.Context, t *transition) (bool, error) {
	switch t.event.Status {
	case stockrequest.StatusIncoming:
		return t.prev != nil && t.prev.Status == stockrequest.StatusWarehouse, nil
	case stockrequest.StatusCancel:
		pp, err := t.prevOfPrev(ctx, h.requests)
		if err != nil {
			return false, err
		}
		return pp != nil && pp.Status == stockrequest.StatusCompleted &&
			t.prev != nil && t.prev.Status == stockrequest.StatusIncoming, nil
	}
	return false, nil
}
