package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stockledger"
	"github.com/wms/backend/internal/domain/stockrequest"
)

// DedupGate guards stock-mutating handlers against redelivered transition
// messages. Begin checks the key; Commit records it after the mutation.
type DedupGate interface {
	Begin(ctx context.Context, key string) (DedupTicket, error)
}

// DedupTicket is the result of a gate check for one delivery
type DedupTicket interface {
	// Fresh reports whether the mutation should run
	Fresh() bool
	// Commit records the key after a successful mutation
	Commit(ctx context.Context)
}

// transition is the loaded chain context of one StatusChangedEvent: the new
// chain event and its predecessor. Handlers read statuses from these loaded
// events only, never from the request's current state, so that stale or
// reordered deliveries cannot change the outcome.
type transition struct {
	msg   *stockrequest.StatusChangedEvent
	event *stockrequest.Event
	prev  *stockrequest.Event // nil for a first event
}

// loadTransition resolves a bus event into its chain context.
// A missing chain event is surfaced as an error: the message references
// state that must exist, so the failure is logged loudly at dispatch
// instead of being treated as a silent no-op. The delivery itself is still
// acknowledged; a redelivery would find the same broken reference.
func loadTransition(ctx context.Context, requests stockrequest.Repository, e shared.DomainEvent) (*transition, error) {
	msg, ok := e.(*stockrequest.StatusChangedEvent)
	if !ok {
		return nil, fmt.Errorf("unexpected event type: expected %s, got %s",
			stockrequest.EventTypeStatusChanged, e.EventType())
	}

	event, err := requests.FindEventByID(ctx, msg.NewEventID)
	if err != nil {
		return nil, fmt.Errorf("load chain event %s: %w", msg.NewEventID, err)
	}

	t := &transition{msg: msg, event: event}
	if msg.PreviousEventID != nil {
		prev, err := requests.FindEventByID(ctx, *msg.PreviousEventID)
		if err != nil {
			return nil, fmt.Errorf("load previous chain event %s: %w", *msg.PreviousEventID, err)
		}
		t.prev = prev
	}
	return t, nil
}

// prevOfPrev loads the event two steps back in the chain, or nil
func (t *transition) prevOfPrev(ctx context.Context, requests stockrequest.Repository) (*stockrequest.Event, error) {
	if t.prev == nil || t.prev.PreviousEventID == nil {
		return nil, nil
	}
	return requests.FindEventByID(ctx, *t.prev.PreviousEventID)
}

// dedupKey builds the gate key for one handler on one chain event
func (t *transition) dedupKey(handler string) string {
	return t.event.ID.String() + ":" + handler
}

// lineIdentity maps a product line to its ledger identity
func lineIdentity(l stockrequest.ProductLine) stockledger.LineIdentity {
	return stockledger.LineIdentity{
		ProductID:         l.ProductID,
		OfferConst:        l.OfferConst,
		VariationConst:    l.VariationConst,
		ModificationConst: l.ModificationConst,
		Storage:           l.Storage,
	}
}

// lineRowKey maps a product line to the exact ledger key at a profile,
// storage included. Used where rows are created, not just resolved.
func lineRowKey(profileID uuid.UUID, l stockrequest.ProductLine) stockledger.RowKey {
	return stockledger.RowKey{
		ProfileID:         profileID,
		ProductID:         l.ProductID,
		OfferConst:        l.OfferConst,
		VariationConst:    l.VariationConst,
		ModificationConst: l.ModificationConst,
		Storage:           l.Storage,
	}
}
