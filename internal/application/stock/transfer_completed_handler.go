package stock

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stockledger"
	"github.com/wms/backend/internal/domain/stockrequest"
	"github.com/wms/backend/internal/domain/warehouse"
)

// TransferCompletedHandler settles a finished inter-warehouse transfer. It
// fires when a request leaves Moving for Incoming or Completed, meaning the
// destination confirmed receipt.
//
// On the source side each line's total is subtracted, and if the source is a
// logistics profile the reserve committed at Moving is released with it. On
// the destination side the quantity is added under the line's exact key,
// creating rows as needed. Quantity is conserved: nothing is created or lost
// by a transfer, it only changes profile. Source and destination come from
// the Moving event, the authoritative record of what was in flight.
type TransferCompletedHandler struct {
	requests   stockrequest.Repository
	ledger     stockledger.Repository
	resolver   *stockledger.Resolver
	warehouses warehouse.Repository
	gate       DedupGate
	logger     *zap.Logger
}

// NewTransferCompletedHandler creates the transfer settlement handler
func NewTransferCompletedHandler(requests stockrequest.Repository, ledger stockledger.Repository, resolver *stockledger.Resolver, warehouses warehouse.Repository, gate DedupGate, logger *zap.Logger) *TransferCompletedHandler {
	return &TransferCompletedHandler{
		requests:   requests,
		ledger:     ledger,
		resolver:   resolver,
		warehouses: warehouses,
		gate:       gate,
		logger:     logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *TransferCompletedHandler) EventTypes() []string {
	return []string{stockrequest.EventTypeStatusChanged}
}

// Handle processes a status transition message
func (h *TransferCompletedHandler) Handle(ctx context.Context, e shared.DomainEvent) error {
	t, err := loadTransition(ctx, h.requests, e)
	if err != nil {
		return err
	}
	if t.prev == nil || t.prev.Status != stockrequest.StatusMoving || !t.prev.IsMove() {
		return nil
	}
	if t.event.Status != stockrequest.StatusIncoming && t.event.Status != stockrequest.StatusCompleted {
		return nil
	}

	logistics, err := h.warehouses.IsLogistics(ctx, t.prev.ProfileID)
	if err != nil {
		return err
	}

	ticket, err := h.gate.Begin(ctx, t.dedupKey("transfer_completed"))
	if err != nil {
		return err
	}
	if !ticket.Fresh() {
		return nil
	}

	destProfileID := *t.prev.DestProfileID
	for _, line := range t.prev.Lines {
		if err := h.settleSource(ctx, t.prev.ProfileID, line, logistics); err != nil {
			h.logger.Error("transfer completed: source not settled",
				zap.String("event_id", t.event.ID.String()),
				zap.String("product_id", line.ProductID.String()),
				zap.Error(err))
			continue
		}
		if err := h.settleDestination(ctx, destProfileID, line); err != nil {
			// The source side already committed; this line needs a manual
			// correction, so the log carries everything an operator needs.
			h.logger.Error("transfer completed: destination not settled after source subtraction",
				zap.String("event_id", t.event.ID.String()),
				zap.String("product_id", line.ProductID.String()),
				zap.String("dest_profile_id", destProfileID.String()),
				zap.Int("quantity", line.Quantity),
				zap.Error(err))
			continue
		}
		h.logger.Info("transfer settled",
			zap.String("request_number", t.event.Number),
			zap.String("product_id", line.ProductID.String()),
			zap.Int("quantity", line.Quantity),
			zap.String("dest_profile_id", destProfileID.String()))
	}

	ticket.Commit(ctx)
	return nil
}

func (h *TransferCompletedHandler) settleSource(ctx context.Context, profileID uuid.UUID, line stockrequest.ProductLine, logistics bool) error {
	row, err := h.resolver.Resolve(ctx, profileID, lineIdentity(line))
	if err != nil {
		if errors.Is(err, shared.ErrUnresolvedIdentifier) {
			return errors.New("no ledger row resolves at source profile")
		}
		return err
	}
	reserveDelta := 0
	if logistics {
		reserveDelta = -line.Quantity
	}
	return h.ledger.ApplyDelta(ctx, row.ID, -line.Quantity, reserveDelta)
}

func (h *TransferCompletedHandler) settleDestination(ctx context.Context, profileID uuid.UUID, line stockrequest.ProductLine) error {
	row, err := h.ledger.GetOrCreate(ctx, lineRowKey(profileID, line))
	if err != nil {
		return err
	}
	return h.ledger.ApplyDelta(ctx, row.ID, line.Quantity, 0)
}
