package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wms/backend/internal/application/stock"
	"github.com/wms/backend/internal/domain/stockrequest"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

// StockRequestHandler handles stock request HTTP requests
type StockRequestHandler struct {
	BaseHandler
	service *stock.RequestService
}

// NewStockRequestHandler creates a new stock request handler
func NewStockRequestHandler(service *stock.RequestService) *StockRequestHandler {
	return &StockRequestHandler{service: service}
}

// RegisterRoutes registers stock request routes
func (h *StockRequestHandler) RegisterRoutes(rg *gin.RouterGroup) {
	requests := rg.Group("/stock-requests")
	{
		requests.POST("", h.Create)
		requests.GET("", h.List)
		requests.GET("/:id", h.Get)
		requests.POST("/:id/status", h.ChangeStatus)
		requests.GET("/number/:number", h.GetByNumber)
	}
}

// Create opens a new stock request with its first chain event
func (h *StockRequestHandler) Create(c *gin.Context) {
	var payload stock.CreateRequestRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	resp, err := h.service.Create(c.Request.Context(), payload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get returns one stock request by ID
func (h *StockRequestHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid request ID")
		return
	}

	resp, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetByNumber returns one stock request by its human-readable number
func (h *StockRequestHandler) GetByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		h.BadRequest(c, "Request number is required")
		return
	}

	resp, err := h.service.GetByNumber(c.Request.Context(), number)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List returns requests whose current status matches the query
func (h *StockRequestHandler) List(c *gin.Context) {
	status := stockrequest.Status(c.Query("status"))
	if status == "" {
		h.BadRequest(c, "Query parameter status is required")
		return
	}

	var list dto.ListRequest
	if err := c.ShouldBindQuery(&list); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	list.Normalize()

	items, total, err := h.service.ListByStatus(c.Request.Context(), status, list.Page, list.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, list.Page, list.PageSize)
}

// ChangeStatus appends a transition event to the request's chain
func (h *StockRequestHandler) ChangeStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid request ID")
		return
	}

	var payload stock.ChangeStatusRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	resp, err := h.service.ChangeStatus(c.Request.Context(), id, payload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
