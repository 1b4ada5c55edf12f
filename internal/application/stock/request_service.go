package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stockrequest"
)

// OrderReader exposes the order subsystem's current line items. The stock
// side never stores order lines of its own; it recomputes request lines
// from this read surface when an order edit arrives.
type OrderReader interface {
	// Lines returns the product lines the order currently wants
	Lines(ctx context.Context, orderID uuid.UUID) ([]stockrequest.LineSpec, error)
}

// NopOrderReader stands in when no order subsystem is attached. Every lookup
// reports the order as missing, which drops the edit without a rebuild.
type NopOrderReader struct{}

// Lines always reports the order as not found
func (NopOrderReader) Lines(context.Context, uuid.UUID) ([]stockrequest.LineSpec, error) {
	return nil, shared.ErrNotFound
}

// RequestService handles the stock request lifecycle
type RequestService struct {
	requests stockrequest.Repository
	notifier stockrequest.Notifier
	logger   *zap.Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(requests stockrequest.Repository, notifier stockrequest.Notifier, logger *zap.Logger) *RequestService {
	if notifier == nil {
		notifier = stockrequest.NopNotifier{}
	}
	return &RequestService{
		requests: requests,
		notifier: notifier,
		logger:   logger,
	}
}

// Create opens a stock request with its first chain event
func (s *RequestService) Create(ctx context.Context, payload CreateRequestRequest) (*RequestResponse, error) {
	status := stockrequest.Status(payload.Status)
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown request status: "+payload.Status)
	}

	req, err := stockrequest.NewStockRequest(stockrequest.NewRequestSpec{
		Number:        payload.Number,
		Status:        status,
		ProfileID:     payload.ProfileID,
		OrderID:       payload.OrderID,
		DestProfileID: payload.DestProfileID,
		DestOrderID:   payload.DestOrderID,
		Comment:       payload.Comment,
		Lines:         toLineSpecs(payload.Lines),
	})
	if err != nil {
		return nil, err
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("stock request created",
		zap.String("request_id", req.ID.String()),
		zap.String("number", req.Number),
		zap.String("status", status.String()),
	)
	s.notify(ctx, req.ID, status)

	return ToRequestResponse(req), nil
}

// ChangeStatus appends a transition event to the request's chain
func (s *RequestService) ChangeStatus(ctx context.Context, requestID uuid.UUID, payload ChangeStatusRequest) (*RequestResponse, error) {
	status := stockrequest.Status(payload.Status)
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown request status: "+payload.Status)
	}

	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	event, err := req.ChangeStatus(status, payload.Comment)
	if err != nil {
		return nil, err
	}

	if err := s.requests.Append(ctx, req, event); err != nil {
		return nil, err
	}

	s.logger.Info("stock request transitioned",
		zap.String("request_id", req.ID.String()),
		zap.String("number", req.Number),
		zap.String("status", status.String()),
	)
	s.notify(ctx, req.ID, status)

	return ToRequestResponse(req), nil
}

// GetByID loads one request
func (s *RequestService) GetByID(ctx context.Context, requestID uuid.UUID) (*RequestResponse, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return ToRequestResponse(req), nil
}

// GetByNumber loads one request by its human-readable number
func (s *RequestService) GetByNumber(ctx context.Context, number string) (*RequestResponse, error) {
	req, err := s.requests.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return ToRequestResponse(req), nil
}

// ListByStatus returns requests at a status, newest first
func (s *RequestService) ListByStatus(ctx context.Context, status stockrequest.Status, page, pageSize int) ([]*RequestResponse, int64, error) {
	if !status.IsValid() {
		return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown request status: "+status.String())
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	reqs, total, err := s.requests.ListByStatus(ctx, status, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	out := make([]*RequestResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, ToRequestResponse(&reqs[i]))
	}
	return out, total, nil
}

// notify broadcasts a presence notice. Best effort: failures are logged.
func (s *RequestService) notify(ctx context.Context, requestID uuid.UUID, status stockrequest.Status) {
	action := stockrequest.NoticeUpdated
	if status.IsTerminal() {
		action = stockrequest.NoticeHidden
	}
	notice := stockrequest.Notice{
		Action:    action,
		RequestID: requestID,
		Status:    status,
		Timestamp: time.Now().UnixNano(),
	}
	if err := s.notifier.Publish(ctx, notice); err != nil {
		s.logger.Warn("failed to broadcast request notice",
			zap.String("request_id", requestID.String()),
			zap.Error(err),
		)
	}
}
