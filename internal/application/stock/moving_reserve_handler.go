package stock

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stockledger"
	"github.com/wms/backend/internal/domain/stockrequest"
	"github.com/wms/backend/internal/domain/warehouse"
)

// MovingReserveHandler commits reserve at the source warehouse when a
// transfer enters Moving. The goods are still on the source's shelves while
// in flight, so totals stay put and only reserve grows; non-logistics source
// profiles skip reservation accounting entirely.
type MovingReserveHandler struct {
	requests   stockrequest.Repository
	ledger     stockledger.Repository
	resolver   *stockledger.Resolver
	warehouses warehouse.Repository
	gate       DedupGate
	logger     *zap.Logger
}

// NewMovingReserveHandler creates the transfer reservation handler
func NewMovingReserveHandler(requests stockrequest.Repository, ledger stockledger.Repository, resolver *stockledger.Resolver, warehouses warehouse.Repository, gate DedupGate, logger *zap.Logger) *MovingReserveHandler {
	return &MovingReserveHandler{
		requests:   requests,
		ledger:     ledger,
		resolver:   resolver,
		warehouses: warehouses,
		gate:       gate,
		logger:     logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *MovingReserveHandler) EventTypes() []string {
	return []string{stockrequest.EventTypeStatusChanged}
}

// Handle processes a status transition message
func (h *MovingReserveHandler) Handle(ctx context.Context, e shared.DomainEvent) error {
	t, err := loadTransition(ctx, h.requests, e)
	if err != nil {
		return err
	}
	if t.event.Status != stockrequest.StatusMoving || !t.event.IsMove() {
		return nil
	}

	logistics, err := h.warehouses.IsLogistics(ctx, t.event.ProfileID)
	if err != nil {
		return err
	}
	if !logistics {
		return nil
	}

	ticket, err := h.gate.Begin(ctx, t.dedupKey("moving_reserve"))
	if err != nil {
		return err
	}
	if !ticket.Fresh() {
		return nil
	}

	for _, line := range t.event.Lines {
		row, err := h.resolver.Resolve(ctx, t.event.ProfileID, lineIdentity(line))
		if err != nil {
			if errors.Is(err, shared.ErrUnresolvedIdentifier) {
				h.logger.Error("moving reserve: no ledger row resolves for line",
					zap.String("event_id", t.event.ID.String()),
					zap.String("product_id", line.ProductID.String()))
				continue
			}
			h.logger.Error("moving reserve: resolve failed",
				zap.String("product_id", line.ProductID.String()), zap.Error(err))
			continue
		}
		if err := h.ledger.ApplyDelta(ctx, row.ID, 0, line.Quantity); err != nil {
			h.logger.Error("moving reserve: reserve not committed",
				zap.String("row_id", row.ID.String()),
				zap.Int("quantity", line.Quantity),
				zap.Error(err))
			continue
		}
		h.logger.Info("transfer reserve committed",
			zap.String("request_number", t.event.Number),
			zap.String("product_id", line.ProductID.String()),
			zap.Int("quantity", line.Quantity))
	}

	ticket.Commit(ctx)
	return nil
}
