package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

// OutboxHandler exposes the transactional outbox for operators: inspecting
// the dead letter queue and putting entries back in flight.
type OutboxHandler struct {
	BaseHandler
	outbox shared.OutboxRepository
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outbox shared.OutboxRepository) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// RegisterRoutes registers outbox management routes
func (h *OutboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	outbox := rg.Group("/system/outbox")
	{
		outbox.GET("/dead", h.ListDead)
		outbox.GET("/stats", h.Stats)
		outbox.POST("/:id/retry", h.RetryDead)
	}
}

// OutboxEntryResponse represents an outbox entry in API responses
type OutboxEntryResponse struct {
	ID          uuid.UUID  `json:"id"`
	EventID     uuid.UUID  `json:"event_id"`
	EventType   string     `json:"event_type"`
	AggregateID uuid.UUID  `json:"aggregate_id"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
	LastError   string     `json:"last_error,omitempty"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toOutboxEntryResponse(e *shared.OutboxEntry) OutboxEntryResponse {
	return OutboxEntryResponse{
		ID:          e.ID,
		EventID:     e.EventID,
		EventType:   e.EventType,
		AggregateID: e.AggregateID,
		Status:      string(e.Status),
		RetryCount:  e.RetryCount,
		MaxRetries:  e.MaxRetries,
		LastError:   e.LastError,
		NextRetryAt: e.NextRetryAt,
		CreatedAt:   e.CreatedAt,
	}
}

// ListDead returns dead letter entries, paginated
func (h *OutboxHandler) ListDead(c *gin.Context) {
	var list dto.ListRequest
	if err := c.ShouldBindQuery(&list); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	list.Normalize()

	entries, total, err := h.outbox.FindDead(c.Request.Context(), list.Page, list.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]OutboxEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toOutboxEntryResponse(e))
	}
	h.SuccessWithMeta(c, out, total, list.Page, list.PageSize)
}

// RetryDead resets a dead letter entry so the processor picks it up again
func (h *OutboxHandler) RetryDead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID")
		return
	}

	entry, err := h.outbox.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := entry.ResetForRetry(); err != nil {
		h.Error(c, 422, dto.ErrCodeInvalidState, err.Error())
		return
	}
	if err := h.outbox.Update(c.Request.Context(), entry); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOutboxEntryResponse(entry))
}

// Stats returns entry counts per outbox status
func (h *OutboxHandler) Stats(c *gin.Context) {
	counts, err := h.outbox.CountByStatus(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make(map[string]int64, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	h.Success(c, out)
}
