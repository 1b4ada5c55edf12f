package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/warehouse"
)

// WarehouseHandler handles warehouse profile HTTP requests
type WarehouseHandler struct {
	BaseHandler
	profiles warehouse.Repository
}

// NewWarehouseHandler creates a new warehouse profile handler
func NewWarehouseHandler(profiles warehouse.Repository) *WarehouseHandler {
	return &WarehouseHandler{profiles: profiles}
}

// RegisterRoutes registers warehouse profile routes
func (h *WarehouseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	profiles := rg.Group("/warehouse-profiles")
	{
		profiles.POST("", h.Create)
		profiles.GET("/:id", h.Get)
	}
}

// CreateProfileRequest is the payload for creating a warehouse profile
type CreateProfileRequest struct {
	Name      string `json:"name" binding:"required,max=128"`
	Logistics bool   `json:"logistics"`
}

// ProfileResponse represents a warehouse profile in API responses
type ProfileResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Logistics bool      `json:"logistics"`
	CreatedAt time.Time `json:"created_at"`
}

func toProfileResponse(p *warehouse.Profile) ProfileResponse {
	return ProfileResponse{
		ID:        p.ID,
		Name:      p.Name,
		Logistics: p.Logistics,
		CreatedAt: p.CreatedAt,
	}
}

// Create registers a warehouse profile
func (h *WarehouseHandler) Create(c *gin.Context) {
	var payload CreateProfileRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	profile, err := warehouse.NewProfile(payload.Name, payload.Logistics)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.profiles.Save(c.Request.Context(), profile); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toProfileResponse(profile))
}

// Get returns one warehouse profile
func (h *WarehouseHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid profile ID")
		return
	}

	profile, err := h.profiles.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "Warehouse profile not found")
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, toProfileResponse(profile))
}
