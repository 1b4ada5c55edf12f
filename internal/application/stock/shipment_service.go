package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stockledger"
)

// ShipmentService hands single units of reserved stock to couriers during
// extradition. The unit pick spans several ledger rows (one per storage
// location), so it runs under the per-key mutex: the conditional update
// alone cannot stop two pickers from draining the same row.
type ShipmentService struct {
	ledger stockledger.Repository
	mutex  shared.KeyedMutex
	wait   time.Duration
	lease  time.Duration
	logger *zap.Logger
}

// NewShipmentService creates a new ShipmentService
func NewShipmentService(ledger stockledger.Repository, mutex shared.KeyedMutex, wait, lease time.Duration, logger *zap.Logger) *ShipmentService {
	return &ShipmentService{
		ledger: ledger,
		mutex:  mutex,
		wait:   wait,
		lease:  lease,
		logger: logger,
	}
}

// DecrementUnit takes one reserved unit of the product identity at the
// profile: it picks the storage row with the smallest total among rows that
// still carry reserve, and decrements both total and reserve there.
// Returns the row the unit was taken from.
func (s *ShipmentService) DecrementUnit(ctx context.Context, profileID uuid.UUID, line stockledger.LineIdentity) (*stockledger.StockTotal, error) {
	key := stockledger.RowKey{
		ProfileID:         profileID,
		ProductID:         line.ProductID,
		OfferConst:        line.OfferConst,
		VariationConst:    line.VariationConst,
		ModificationConst: line.ModificationConst,
	}.MutexKey()

	release, err := s.mutex.Acquire(ctx, key, s.wait, s.lease)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(ctx); err != nil {
			s.logger.Warn("failed to release stock key lock",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}()

	rows, err := s.ledger.ListReserved(ctx, profileID, line)
	if err != nil {
		return nil, err
	}

	row, err := stockledger.PickMinimum(rows)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.ApplyDelta(ctx, row.ID, -1, -1); err != nil {
		return nil, err
	}

	s.logger.Info("unit handed to courier",
		zap.String("profile_id", profileID.String()),
		zap.String("product_id", line.ProductID.String()),
		zap.String("row_id", row.ID.String()),
		zap.String("storage", row.Storage),
	)
	return row, nil
}
