package event

import (
	"github.com/wms/backend/internal/domain/stockrequest"
)

// RegisterDomainEvents registers every domain event type the outbox can
// carry. Unregistered types fail deserialization and end up dead-lettered.
func RegisterDomainEvents(serializer *Serializer) {
	serializer.Register(stockrequest.EventTypeStatusChanged, &stockrequest.StatusChangedEvent{})
	serializer.Register(stockrequest.EventTypeOrderEdited, &stockrequest.OrderEditedEvent{})
}
