package stockrequest

import (
	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// Event type constants for stock request domain events
const (
	EventTypeStatusChanged = "stock_request.status_changed"
	EventTypeOrderEdited   = "order.edited"
)

// AggregateTypeStockRequest identifies the aggregate in event metadata
const AggregateTypeStockRequest = "StockRequest"

// StatusChangedEvent is the transition message published whenever a request
// acquires a new chain event. It intentionally carries only identifiers:
// consumers load the referenced events and read statuses from them, never
// from "current" state, so that redelivery order cannot change the outcome.
type StatusChangedEvent struct {
	shared.BaseDomainEvent
	RequestID       uuid.UUID  `json:"request_id"`
	NewEventID      uuid.UUID  `json:"new_event_id"`
	PreviousEventID *uuid.UUID `json:"previous_event_id,omitempty"`
}

// NewStatusChangedEvent creates a transition message for a new chain event
func NewStatusChangedEvent(requestID, newEventID uuid.UUID, previousEventID *uuid.UUID) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStatusChanged, AggregateTypeStockRequest, requestID),
		RequestID:       requestID,
		NewEventID:      newEventID,
		PreviousEventID: previousEventID,
	}
}

// OrderEditedEvent is published by the external order subsystem when an
// order's line items change. The aggregate reference is the order itself.
type OrderEditedEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
}

// NewOrderEditedEvent creates an order edited message
func NewOrderEditedEvent(orderID uuid.UUID) *OrderEditedEvent {
	return &OrderEditedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderEdited, "Order", orderID),
		OrderID:         orderID,
	}
}
