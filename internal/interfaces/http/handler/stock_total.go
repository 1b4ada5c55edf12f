package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wms/backend/internal/application/stock"
	"github.com/wms/backend/internal/domain/stockledger"
)

// StockTotalHandler handles stock ledger read and pick HTTP requests
type StockTotalHandler struct {
	BaseHandler
	ledger    stockledger.Repository
	shipments *stock.ShipmentService
}

// NewStockTotalHandler creates a new stock ledger handler
func NewStockTotalHandler(ledger stockledger.Repository, shipments *stock.ShipmentService) *StockTotalHandler {
	return &StockTotalHandler{ledger: ledger, shipments: shipments}
}

// RegisterRoutes registers stock ledger routes
func (h *StockTotalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	totals := rg.Group("/stock-totals")
	{
		totals.GET("", h.ListByProduct)
		totals.POST("/pick", h.PickUnit)
	}
}

// ListByProduct returns every ledger row of a product at a profile
func (h *StockTotalHandler) ListByProduct(c *gin.Context) {
	profileID, err := uuid.Parse(c.Query("profile_id"))
	if err != nil {
		h.BadRequest(c, "Invalid or missing profile_id")
		return
	}
	productID, err := uuid.Parse(c.Query("product_id"))
	if err != nil {
		h.BadRequest(c, "Invalid or missing product_id")
		return
	}

	rows, err := h.ledger.ListByProduct(c.Request.Context(), profileID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]stock.StockTotalResponse, 0, len(rows))
	for i := range rows {
		out = append(out, stock.ToStockTotalResponse(&rows[i]))
	}
	h.Success(c, out)
}

// PickUnitRequest is the payload for handing one reserved unit to a courier
type PickUnitRequest struct {
	ProfileID         uuid.UUID  `json:"profile_id" binding:"required"`
	ProductID         uuid.UUID  `json:"product_id" binding:"required"`
	OfferConst        *uuid.UUID `json:"offer_const,omitempty"`
	VariationConst    *uuid.UUID `json:"variation_const,omitempty"`
	ModificationConst *uuid.UUID `json:"modification_const,omitempty"`
}

// PickUnit takes one reserved unit of a product identity off the shelf with
// the smallest pile and reports which storage location it came from
func (h *StockTotalHandler) PickUnit(c *gin.Context) {
	var payload PickUnitRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	row, err := h.shipments.DecrementUnit(c.Request.Context(), payload.ProfileID, stockledger.LineIdentity{
		ProductID:         payload.ProductID,
		OfferConst:        payload.OfferConst,
		VariationConst:    payload.VariationConst,
		ModificationConst: payload.ModificationConst,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stock.ToStockTotalResponse(row))
}
