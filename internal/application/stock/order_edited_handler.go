package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stockrequest"
)

// OrderEditedHandler propagates order line edits into the linked stock
// request. Before Package the request's lines are derived from the order on
// demand, so nothing is stored to fix up; from Package on the pick list is
// materialized and must be rebuilt, which appends a line-replacement event
// to the chain and notifies watchers.
type OrderEditedHandler struct {
	requests stockrequest.Repository
	orders   OrderReader
	notifier stockrequest.Notifier
	gate     DedupGate
	logger   *zap.Logger
}

// NewOrderEditedHandler creates the order edit propagation handler
func NewOrderEditedHandler(requests stockrequest.Repository, orders OrderReader, notifier stockrequest.Notifier, gate DedupGate, logger *zap.Logger) *OrderEditedHandler {
	if notifier == nil {
		notifier = stockrequest.NopNotifier{}
	}
	return &OrderEditedHandler{
		requests: requests,
		orders:   orders,
		notifier: notifier,
		gate:     gate,
		logger:   logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderEditedHandler) EventTypes() []string {
	return []string{stockrequest.EventTypeOrderEdited}
}

// Handle processes an order edited message
func (h *OrderEditedHandler) Handle(ctx context.Context, e shared.DomainEvent) error {
	msg, ok := e.(*stockrequest.OrderEditedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			stockrequest.EventTypeOrderEdited, e.EventType())
	}

	req, err := h.requests.FindByOrderID(ctx, msg.OrderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Edits of orders without a stock request are none of our business
			return nil
		}
		return err
	}
	if req.CurrentEvent == nil || !req.CurrentEvent.Status.AtOrPastPackage() {
		return nil
	}

	ticket, err := h.gate.Begin(ctx, msg.EventID().String()+":order_edited")
	if err != nil {
		return err
	}
	if !ticket.Fresh() {
		return nil
	}

	lines, err := h.orders.Lines(ctx, msg.OrderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// The order vanished between the edit and this delivery;
			// there is nothing left to rebuild from
			h.logger.Warn("order not found, edit dropped",
				zap.String("order_id", msg.OrderID.String()))
			return nil
		}
		return fmt.Errorf("load order lines %s: %w", msg.OrderID, err)
	}

	event, err := req.ReplaceLines(lines)
	if err != nil {
		return err
	}
	if err := h.requests.Append(ctx, req, event); err != nil {
		return err
	}

	ticket.Commit(ctx)

	h.logger.Info("request lines rebuilt after order edit",
		zap.String("request_number", req.Number),
		zap.String("order_id", msg.OrderID.String()),
		zap.Int("line_count", len(lines)))

	if err := h.notifier.Publish(ctx, stockrequest.Notice{
		Action:    stockrequest.NoticeUpdated,
		RequestID: req.ID,
		Status:    event.Status,
		Timestamp: time.Now().UnixNano(),
	}); err != nil {
		h.logger.Warn("request notice not published",
			zap.String("request_id", req.ID.String()), zap.Error(err))
	}
	return nil
}
