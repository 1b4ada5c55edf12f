package stockrequest

import (
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// StockRequest is the aggregate root for one warehouse operation (purchase,
// receipt, pick, transfer, ...). The request itself holds only a pointer to
// its current event; every status change appends a new immutable Event to
// the chain, it never mutates a past one.
type StockRequest struct {
	shared.BaseAggregateRoot
	Number         string    `gorm:"type:varchar(32);not null;uniqueIndex"`
	CurrentEventID uuid.UUID `gorm:"type:uuid;not null;index"`

	// CurrentEvent is loaded alongside the request; the full history stays
	// in the events table.
	CurrentEvent *Event `gorm:"foreignKey:CurrentEventID"`
}

// TableName returns the table name for GORM
func (StockRequest) TableName() string {
	return "stock_requests"
}

// Event is one immutable snapshot in a stock request's status chain.
type Event struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RequestID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	PreviousEventID *uuid.UUID `gorm:"type:uuid;index"` // nil only for the first event
	Status          Status     `gorm:"type:varchar(16);not null;index"`
	ProfileID       uuid.UUID  `gorm:"type:uuid;not null;index"` // responsible warehouse profile
	OrderID         *uuid.UUID `gorm:"type:uuid;index"`          // linked order, if order-driven
	DestProfileID   *uuid.UUID `gorm:"type:uuid"`                // move destination
	DestOrderID     *uuid.UUID `gorm:"type:uuid"`                // order driving the move, if any
	Comment         string     `gorm:"type:text"`
	Number          string     `gorm:"type:varchar(32);not null"` // stable across the chain
	Lines           []ProductLine `gorm:"foreignKey:EventID;references:ID"`
	CreatedAt       time.Time
}

// TableName returns the table name for GORM
func (Event) TableName() string {
	return "stock_request_events"
}

// IsMove reports whether the event carries a transfer destination
func (e *Event) IsMove() bool {
	return e.DestProfileID != nil
}

// HasOrder reports whether the event is linked to an order
func (e *Event) HasOrder() bool {
	return e.OrderID != nil
}

// ProductLine is one product position of an event. The optional consts form
// a strict hierarchy: modification implies variation implies offer.
type ProductLine struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	EventID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID  `gorm:"type:uuid;not null"`
	OfferConst        *uuid.UUID `gorm:"type:uuid"`
	VariationConst    *uuid.UUID `gorm:"type:uuid"`
	ModificationConst *uuid.UUID `gorm:"type:uuid"`
	Quantity          int        `gorm:"not null"`
	Storage           string     `gorm:"type:varchar(64)"` // storage location label
}

// TableName returns the table name for GORM
func (ProductLine) TableName() string {
	return "stock_request_product_lines"
}

// LineSpec is the value used to build product lines for a new event.
type LineSpec struct {
	ProductID         uuid.UUID
	OfferConst        *uuid.UUID
	VariationConst    *uuid.UUID
	ModificationConst *uuid.UUID
	Quantity          int
	Storage           string
}

func (s LineSpec) validate() error {
	if s.ProductID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if s.Quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
	}
	// The consts form a strict hierarchy: a deeper level requires every
	// level above it.
	if s.ModificationConst != nil && s.VariationConst == nil {
		return shared.NewDomainError("INVALID_CONST_HIERARCHY", "Modification const requires a variation const")
	}
	if s.VariationConst != nil && s.OfferConst == nil {
		return shared.NewDomainError("INVALID_CONST_HIERARCHY", "Variation const requires an offer const")
	}
	return nil
}

// NewRequestSpec carries everything needed to open a stock request.
type NewRequestSpec struct {
	Number        string
	Status        Status
	ProfileID     uuid.UUID
	OrderID       *uuid.UUID
	DestProfileID *uuid.UUID
	DestOrderID   *uuid.UUID
	Comment       string
	Lines         []LineSpec
}

// NewStockRequest opens a request with its first event.
func NewStockRequest(spec NewRequestSpec) (*StockRequest, error) {
	if spec.Number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Request number cannot be empty")
	}
	if !spec.Status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown request status")
	}
	if spec.ProfileID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROFILE", "Profile ID cannot be empty")
	}
	if len(spec.Lines) == 0 {
		return nil, shared.NewDomainError("INVALID_LINES", "A request needs at least one product line")
	}

	req := &StockRequest{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            spec.Number,
	}

	event, err := req.buildEvent(nil, spec.Status, spec.ProfileID, spec.OrderID, spec.DestProfileID, spec.DestOrderID, spec.Comment, spec.Lines)
	if err != nil {
		return nil, err
	}

	req.CurrentEventID = event.ID
	req.CurrentEvent = event
	req.AddDomainEvent(NewStatusChangedEvent(req.ID, event.ID, nil))

	return req, nil
}

// ChangeStatus appends a new event with the given status, carrying over the
// current event's lines and move sub-record, and retargets the current
// pointer. The previous event stays untouched in the chain.
func (r *StockRequest) ChangeStatus(status Status, comment string) (*Event, error) {
	if r.CurrentEvent == nil {
		return nil, shared.ErrInvalidState
	}
	if !r.CurrentEvent.Status.CanTransitionTo(status) {
		return nil, shared.NewDomainError("ILLEGAL_TRANSITION",
			"Transition "+r.CurrentEvent.Status.String()+" -> "+status.String()+" is not allowed")
	}

	prev := r.CurrentEvent
	lines := make([]LineSpec, 0, len(prev.Lines))
	for _, l := range prev.Lines {
		lines = append(lines, LineSpec{
			ProductID:         l.ProductID,
			OfferConst:        l.OfferConst,
			VariationConst:    l.VariationConst,
			ModificationConst: l.ModificationConst,
			Quantity:          l.Quantity,
			Storage:           l.Storage,
		})
	}

	prevID := prev.ID
	event, err := r.buildEvent(&prevID, status, prev.ProfileID, prev.OrderID, prev.DestProfileID, prev.DestOrderID, comment, lines)
	if err != nil {
		return nil, err
	}

	r.CurrentEventID = event.ID
	r.CurrentEvent = event
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	r.AddDomainEvent(NewStatusChangedEvent(r.ID, event.ID, &prevID))

	return event, nil
}

// ReplaceLines appends a new event that keeps the current status, profile
// and number but carries a recomputed product line collection. Used when the
// linked order is edited after the request has entered pick/pack.
func (r *StockRequest) ReplaceLines(lines []LineSpec) (*Event, error) {
	if r.CurrentEvent == nil {
		return nil, shared.ErrInvalidState
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_LINES", "A request needs at least one product line")
	}

	prev := r.CurrentEvent
	prevID := prev.ID
	event, err := r.buildEvent(&prevID, prev.Status, prev.ProfileID, prev.OrderID, prev.DestProfileID, prev.DestOrderID, prev.Comment, lines)
	if err != nil {
		return nil, err
	}

	r.CurrentEventID = event.ID
	r.CurrentEvent = event
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	r.AddDomainEvent(NewStatusChangedEvent(r.ID, event.ID, &prevID))

	return event, nil
}

func (r *StockRequest) buildEvent(prevID *uuid.UUID, status Status, profileID uuid.UUID, orderID, destProfileID, destOrderID *uuid.UUID, comment string, lines []LineSpec) (*Event, error) {
	event := &Event{
		ID:              uuid.New(),
		RequestID:       r.ID,
		PreviousEventID: prevID,
		Status:          status,
		ProfileID:       profileID,
		OrderID:         orderID,
		DestProfileID:   destProfileID,
		DestOrderID:     destOrderID,
		Comment:         comment,
		Number:          r.Number,
		CreatedAt:       time.Now(),
	}

	for _, spec := range lines {
		if err := spec.validate(); err != nil {
			return nil, err
		}
		event.Lines = append(event.Lines, ProductLine{
			ID:                uuid.New(),
			EventID:           event.ID,
			ProductID:         spec.ProductID,
			OfferConst:        spec.OfferConst,
			VariationConst:    spec.VariationConst,
			ModificationConst: spec.ModificationConst,
			Quantity:          spec.Quantity,
			Storage:           spec.Storage,
		})
	}

	return event, nil
}
