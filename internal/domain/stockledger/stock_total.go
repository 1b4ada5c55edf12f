package stockledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// StockTotal is one stock ledger row: the authoritative quantity record for
// a product identity at a storage location of a warehouse profile.
//
// Total is the on-hand quantity; Reserve is quantity committed to an
// outgoing request but not yet physically removed. The committed invariant
// is 0 <= Reserve <= Total; every write goes through a conditional update
// that rejects any delta which would break it.
//
// Rows are created lazily on first receipt and never hard-deleted: a key
// that drains to zero keeps its zero row.
type StockTotal struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProfileID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_stock_total_key,priority:1"`
	ProductID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_stock_total_key,priority:2"`
	OfferConst        *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_stock_total_key,priority:3"`
	VariationConst    *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_stock_total_key,priority:4"`
	ModificationConst *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_stock_total_key,priority:5"`
	Storage           string     `gorm:"type:varchar(64);uniqueIndex:idx_stock_total_key,priority:6"`
	Total             int        `gorm:"not null;default:0"`
	Reserve           int        `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName returns the table name for GORM
func (StockTotal) TableName() string {
	return "stock_totals"
}

// Available returns the uncommitted on-hand quantity
func (t *StockTotal) Available() int {
	return t.Total - t.Reserve
}

// RowKey identifies a ledger row. Const identifiers are stable across edits
// of the mutable product records, which is why the ledger is keyed by them
// and not by foreign keys into the catalog.
type RowKey struct {
	ProfileID         uuid.UUID
	ProductID         uuid.UUID
	OfferConst        *uuid.UUID
	VariationConst    *uuid.UUID
	ModificationConst *uuid.UUID
	Storage           string
}

// NewRow creates a zero-quantity ledger row for a key
func NewRow(key RowKey) (*StockTotal, error) {
	if key.ProfileID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROFILE", "Profile ID cannot be empty")
	}
	if key.ProductID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	now := time.Now()
	return &StockTotal{
		ID:                uuid.New(),
		ProfileID:         key.ProfileID,
		ProductID:         key.ProductID,
		OfferConst:        key.OfferConst,
		VariationConst:    key.VariationConst,
		ModificationConst: key.ModificationConst,
		Storage:           key.Storage,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// MutexKey builds the string key used for per-key mutual exclusion around
// select-then-decrement operations. Storage is deliberately excluded: the
// pick chooses among storage locations of one product identity.
func (k RowKey) MutexKey() string {
	s := "stock:" + k.ProfileID.String() + ":" + k.ProductID.String()
	for _, c := range []*uuid.UUID{k.OfferConst, k.VariationConst, k.ModificationConst} {
		if c != nil {
			s += ":" + c.String()
		}
	}
	return s
}
