package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stockledger"
)

// GormLedgerRepository implements stockledger.Repository using GORM
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// FindRow finds the row for an exact key
func (r *GormLedgerRepository) FindRow(ctx context.Context, key stockledger.RowKey) (*stockledger.StockTotal, error) {
	var row stockledger.StockTotal
	if err := keyConditions(r.db.WithContext(ctx), key).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// FindByID finds a row by its primary key
func (r *GormLedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*stockledger.StockTotal, error) {
	var row stockledger.StockTotal
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// GetOrCreate returns the row for a key, creating a zero row if absent.
// A concurrent insert on the same key loses to the unique index and the
// existing row is fetched instead.
func (r *GormLedgerRepository) GetOrCreate(ctx context.Context, key stockledger.RowKey) (*stockledger.StockTotal, error) {
	row, err := r.FindRow(ctx, key)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	row, err = stockledger.NewRow(key)
	if err != nil {
		return nil, err
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return r.FindRow(ctx, key)
	}
	return row, nil
}

// ApplyDelta atomically adds the deltas to a row. The WHERE clause carries
// the full invariant, so a delta that would drive total or reserve negative,
// or reserve above total, matches no row and changes nothing.
func (r *GormLedgerRepository) ApplyDelta(ctx context.Context, rowID uuid.UUID, totalDelta, reserveDelta int) error {
	result := r.db.WithContext(ctx).
		Model(&stockledger.StockTotal{}).
		Where("id = ? AND total + ? >= 0 AND reserve + ? >= 0 AND reserve + ? <= total + ?",
			rowID, totalDelta, reserveDelta, reserveDelta, totalDelta).
		Updates(map[string]interface{}{
			"total":      gorm.Expr("total + ?", totalDelta),
			"reserve":    gorm.Expr("reserve + ?", reserveDelta),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, rowID); errors.Is(err, shared.ErrNotFound) {
			return shared.ErrNotFound
		}
		return shared.ErrPreconditionFailed
	}
	return nil
}

// ListReserved returns every row of a product identity at a profile that
// carries reserve, across storage locations, in insertion order.
func (r *GormLedgerRepository) ListReserved(ctx context.Context, profileID uuid.UUID, line stockledger.LineIdentity) ([]stockledger.StockTotal, error) {
	var rows []stockledger.StockTotal
	query := identityConditions(r.db.WithContext(ctx), profileID, line).
		Where("reserve > 0").
		Order("created_at ASC")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByProduct returns all rows for a product at a profile
func (r *GormLedgerRepository) ListByProduct(ctx context.Context, profileID, productID uuid.UUID) ([]stockledger.StockTotal, error) {
	var rows []stockledger.StockTotal
	if err := r.db.WithContext(ctx).
		Where("profile_id = ? AND product_id = ?", profileID, productID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// keyConditions builds the WHERE clause for an exact row key. Absent consts
// must match SQL NULL, not the zero UUID.
func keyConditions(q *gorm.DB, key stockledger.RowKey) *gorm.DB {
	q = q.Where("profile_id = ? AND product_id = ? AND storage = ?",
		key.ProfileID, key.ProductID, key.Storage)
	return constConditions(q, key.OfferConst, key.VariationConst, key.ModificationConst)
}

// identityConditions builds the WHERE clause for a product identity across
// storage locations.
func identityConditions(q *gorm.DB, profileID uuid.UUID, line stockledger.LineIdentity) *gorm.DB {
	q = q.Where("profile_id = ? AND product_id = ?", profileID, line.ProductID)
	return constConditions(q, line.OfferConst, line.VariationConst, line.ModificationConst)
}

func constConditions(q *gorm.DB, offer, variation, modification *uuid.UUID) *gorm.DB {
	cols := []struct {
		name string
		val  *uuid.UUID
	}{
		{"offer_const", offer},
		{"variation_const", variation},
		{"modification_const", modification},
	}
	for _, c := range cols {
		if c.val == nil {
			q = q.Where(c.name + " IS NULL")
		} else {
			q = q.Where(c.name+" = ?", *c.val)
		}
	}
	return q
}

var _ stockledger.Repository = (*GormLedgerRepository)(nil)
