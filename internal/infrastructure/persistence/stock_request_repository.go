package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stockrequest"
)

// GormStockRequestRepository implements stockrequest.Repository using GORM.
// Writes go through one transaction that persists the aggregate, its newest
// chain event and the pending domain events (outbox) together.
type GormStockRequestRepository struct {
	db         *gorm.DB
	eventSaver shared.OutboxEventSaver
}

// NewGormStockRequestRepository creates a new GormStockRequestRepository
func NewGormStockRequestRepository(db *gorm.DB, eventSaver shared.OutboxEventSaver) *GormStockRequestRepository {
	return &GormStockRequestRepository{db: db, eventSaver: eventSaver}
}

// FindByID loads a request with its current event and lines
func (r *GormStockRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*stockrequest.StockRequest, error) {
	var req stockrequest.StockRequest
	if err := r.db.WithContext(ctx).
		Preload("CurrentEvent.Lines").
		Preload("CurrentEvent").
		First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// FindByNumber loads a request by its human-readable number
func (r *GormStockRequestRepository) FindByNumber(ctx context.Context, number string) (*stockrequest.StockRequest, error) {
	var req stockrequest.StockRequest
	if err := r.db.WithContext(ctx).
		Preload("CurrentEvent.Lines").
		Preload("CurrentEvent").
		First(&req, "number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// FindByOrderID loads the request whose current event links the order
func (r *GormStockRequestRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*stockrequest.StockRequest, error) {
	var req stockrequest.StockRequest
	if err := r.db.WithContext(ctx).
		Joins("JOIN stock_request_events ce ON ce.id = stock_requests.current_event_id").
		Where("ce.order_id = ?", orderID).
		Preload("CurrentEvent.Lines").
		Preload("CurrentEvent").
		First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// FindEventByID loads one chain event with its lines
func (r *GormStockRequestRepository) FindEventByID(ctx context.Context, id uuid.UUID) (*stockrequest.Event, error) {
	var event stockrequest.Event
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

// ListByStatus returns requests whose current event has the given status,
// newest first
func (r *GormStockRequestRepository) ListByStatus(ctx context.Context, status stockrequest.Status, page, pageSize int) ([]stockrequest.StockRequest, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&stockrequest.StockRequest{}).
		Joins("JOIN stock_request_events ce ON ce.id = stock_requests.current_event_id").
		Where("ce.status = ?", status)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reqs []stockrequest.StockRequest
	offset := (page - 1) * pageSize
	if err := base.
		Preload("CurrentEvent.Lines").
		Preload("CurrentEvent").
		Order("stock_requests.created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&reqs).Error; err != nil {
		return nil, 0, err
	}

	return reqs, total, nil
}

// Create persists a new request with its first event
func (r *GormStockRequestRepository) Create(ctx context.Context, req *stockrequest.StockRequest) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The request row goes first so the event's request_id FK holds;
		// the current_event_id column has no FK for this reason.
		if err := tx.Omit(clause.Associations).Create(req).Error; err != nil {
			return err
		}
		if err := tx.Create(req.CurrentEvent).Error; err != nil {
			return err
		}
		return r.eventSaver.SaveEvents(ctx, tx, req.GetDomainEvents()...)
	})
	if err != nil {
		return err
	}

	req.ClearDomainEvents()
	return nil
}

// Append persists a freshly built chain event and retargets the request's
// current pointer, guarded by the aggregate version.
func (r *GormStockRequestRepository) Append(ctx context.Context, req *stockrequest.StockRequest, event *stockrequest.Event) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}

		result := tx.Model(&stockrequest.StockRequest{}).
			Where("id = ? AND version = ?", req.ID, req.Version-1).
			Updates(map[string]interface{}{
				"current_event_id": event.ID,
				"version":          req.Version,
				"updated_at":       time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		return r.eventSaver.SaveEvents(ctx, tx, req.GetDomainEvents()...)
	})
	if err != nil {
		return err
	}

	req.ClearDomainEvents()
	return nil
}

var _ stockrequest.Repository = (*GormStockRequestRepository)(nil)
