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

// MovingCancelHandler releases the source reserve of a transfer that was
// cancelled while in flight. Totals are untouched: the goods never left the
// source shelves, only the reservation is undone. Non-logistics sources
// never reserved anything, so there is nothing to release.
type MovingCancelHandler struct {
	requests   stockrequest.Repository
	ledger     stockledger.Repository
	resolver   *stockledger.Resolver
	warehouses warehouse.Repository
	gate       DedupGate
	logger     *zap.Logger
}

// NewMovingCancelHandler creates the transfer cancellation handler
func NewMovingCancelHandler(requests stockrequest.Repository, ledger stockledger.Repository, resolver *stockledger.Resolver, warehouses warehouse.Repository, gate DedupGate, logger *zap.Logger) *MovingCancelHandler {
	return &MovingCancelHandler{
		requests:   requests,
		ledger:     ledger,
		resolver:   resolver,
		warehouses: warehouses,
		gate:       gate,
		logger:     logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *MovingCancelHandler) EventTypes() []string {
	return []string{stockrequest.EventTypeStatusChanged}
}

// Handle processes a status transition message
func (h *MovingCancelHandler) Handle(ctx context.Context, e shared.DomainEvent) error {
	t, err := loadTransition(ctx, h.requests, e)
	if err != nil {
		return err
	}
	if t.event.Status != stockrequest.StatusCancel {
		return nil
	}
	if t.prev == nil || t.prev.Status != stockrequest.StatusMoving || !t.prev.IsMove() {
		return nil
	}
	// An order-driven cancellation is reversed by the order-cancel flow;
	// releasing here as well would double-reverse the reserve.
	if t.prev.HasOrder() {
		return nil
	}

	logistics, err := h.warehouses.IsLogistics(ctx, t.prev.ProfileID)
	if err != nil {
		return err
	}
	if !logistics {
		return nil
	}

	ticket, err := h.gate.Begin(ctx, t.dedupKey("moving_cancel"))
	if err != nil {
		return err
	}
	if !ticket.Fresh() {
		return nil
	}

	for _, line := range t.event.Lines {
		row, err := h.resolver.Resolve(ctx, t.prev.ProfileID, lineIdentity(line))
		if err != nil {
			if errors.Is(err, shared.ErrUnresolvedIdentifier) {
				h.logger.Error("moving cancel: no ledger row resolves for line",
					zap.String("event_id", t.event.ID.String()),
					zap.String("product_id", line.ProductID.String()))
				continue
			}
			h.logger.Error("moving cancel: resolve failed",
				zap.String("product_id", line.ProductID.String()), zap.Error(err))
			continue
		}
		if err := h.ledger.ApplyDelta(ctx, row.ID, 0, -line.Quantity); err != nil {
			h.logger.Error("moving cancel: reserve not released",
				zap.String("row_id", row.ID.String()),
				zap.Int("quantity", line.Quantity),
				zap.Error(err))
			continue
		}
		h.logger.Info("transfer reserve released",
			zap.String("request_number", t.event.Number),
			zap.String("product_id", line.ProductID.String()),
			zap.Int("quantity", line.Quantity))
	}

	ticket.Commit(ctx)
	return nil
}
