package stock

import (
	"time"

	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/stockledger"
	"github.com/wms/backend/internal/domain/stockrequest"
)

// LineRequest is one product line in a create or edit payload
type LineRequest struct {
	ProductID         uuid.UUID  `json:"product_id" binding:"required"`
	OfferConst        *uuid.UUID `json:"offer_const,omitempty"`
	VariationConst    *uuid.UUID `json:"variation_const,omitempty"`
	ModificationConst *uuid.UUID `json:"modification_const,omitempty"`
	Quantity          int        `json:"quantity" binding:"required,min=1"`
	Storage           string     `json:"storage" binding:"max=64"`
}

// CreateRequestRequest is the payload for opening a stock request
type CreateRequestRequest struct {
	Number        string        `json:"number" binding:"required,max=32"`
	Status        string        `json:"status" binding:"required"`
	ProfileID     uuid.UUID     `json:"profile_id" binding:"required"`
	OrderID       *uuid.UUID    `json:"order_id,omitempty"`
	DestProfileID *uuid.UUID    `json:"dest_profile_id,omitempty"`
	DestOrderID   *uuid.UUID    `json:"dest_order_id,omitempty"`
	Comment       string        `json:"comment" binding:"max=1024"`
	Lines         []LineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ChangeStatusRequest is the payload for a status transition
type ChangeStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment" binding:"max=1024"`
}

// toLineSpecs converts payload lines to domain line specs
func toLineSpecs(lines []LineRequest) []stockrequest.LineSpec {
	specs := make([]stockrequest.LineSpec, 0, len(lines))
	for _, l := range lines {
		specs = append(specs, stockrequest.LineSpec{
			ProductID:         l.ProductID,
			OfferConst:        l.OfferConst,
			VariationConst:    l.VariationConst,
			ModificationConst: l.ModificationConst,
			Quantity:          l.Quantity,
			Storage:           l.Storage,
		})
	}
	return specs
}

// LineResponse represents a product line in API responses
type LineResponse struct {
	ID                uuid.UUID  `json:"id"`
	ProductID         uuid.UUID  `json:"product_id"`
	OfferConst        *uuid.UUID `json:"offer_const,omitempty"`
	VariationConst    *uuid.UUID `json:"variation_const,omitempty"`
	ModificationConst *uuid.UUID `json:"modification_const,omitempty"`
	Quantity          int        `json:"quantity"`
	Storage           string     `json:"storage,omitempty"`
}

// EventResponse represents one chain event in API responses
type EventResponse struct {
	ID              uuid.UUID      `json:"id"`
	PreviousEventID *uuid.UUID     `json:"previous_event_id,omitempty"`
	Status          string         `json:"status"`
	ProfileID       uuid.UUID      `json:"profile_id"`
	OrderID         *uuid.UUID     `json:"order_id,omitempty"`
	DestProfileID   *uuid.UUID     `json:"dest_profile_id,omitempty"`
	DestOrderID     *uuid.UUID     `json:"dest_order_id,omitempty"`
	Comment         string         `json:"comment,omitempty"`
	Lines           []LineResponse `json:"lines"`
	CreatedAt       time.Time      `json:"created_at"`
}

// RequestResponse represents a stock request in API responses
type RequestResponse struct {
	ID           uuid.UUID      `json:"id"`
	Number       string         `json:"number"`
	Status       string         `json:"status"`
	CurrentEvent *EventResponse `json:"current_event,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Version      int            `json:"version"`
}

// StockTotalResponse represents one ledger row in API responses
type StockTotalResponse struct {
	ID                uuid.UUID  `json:"id"`
	ProfileID         uuid.UUID  `json:"profile_id"`
	ProductID         uuid.UUID  `json:"product_id"`
	OfferConst        *uuid.UUID `json:"offer_const,omitempty"`
	VariationConst    *uuid.UUID `json:"variation_const,omitempty"`
	ModificationConst *uuid.UUID `json:"modification_const,omitempty"`
	Storage           string     `json:"storage,omitempty"`
	Total             int        `json:"total"`
	Reserve           int        `json:"reserve"`
	Available         int        `json:"available"`
}

// ToEventResponse converts a chain event to its API representation
func ToEventResponse(e *stockrequest.Event) *EventResponse {
	if e == nil {
		return nil
	}
	lines := make([]LineResponse, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, LineResponse{
			ID:                l.ID,
			ProductID:         l.ProductID,
			OfferConst:        l.OfferConst,
			VariationConst:    l.VariationConst,
			ModificationConst: l.ModificationConst,
			Quantity:          l.Quantity,
			Storage:           l.Storage,
		})
	}
	return &EventResponse{
		ID:              e.ID,
		PreviousEventID: e.PreviousEventID,
		Status:          e.Status.String(),
		ProfileID:       e.ProfileID,
		OrderID:         e.OrderID,
		DestProfileID:   e.DestProfileID,
		DestOrderID:     e.DestOrderID,
		Comment:         e.Comment,
		Lines:           lines,
		CreatedAt:       e.CreatedAt,
	}
}

// ToRequestResponse converts a stock request to its API representation
func ToRequestResponse(r *stockrequest.StockRequest) *RequestResponse {
	resp := &RequestResponse{
		ID:        r.ID,
		Number:    r.Number,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Version:   r.Version,
	}
	if r.CurrentEvent != nil {
		resp.Status = r.CurrentEvent.Status.String()
		resp.CurrentEvent = ToEventResponse(r.CurrentEvent)
	}
	return resp
}

// ToStockTotalResponse converts a ledger row to its API representation
func ToStockTotalResponse(t *stockledger.StockTotal) StockTotalResponse {
	return StockTotalResponse{
		ID:                t.ID,
		ProfileID:         t.ProfileID,
		ProductID:         t.ProductID,
		OfferConst:        t.OfferConst,
		VariationConst:    t.VariationConst,
		ModificationConst: t.ModificationConst,
		Storage:           t.Storage,
		Total:             t.Total,
		Reserve:           t.Reserve,
		Available:         t.Available(),
	}
}
