package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/warehouse"
)

// GormWarehouseRepository implements warehouse.Repository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindByID finds a profile by its ID
func (r *GormWarehouseRepository) FindByID(ctx context.Context, id uuid.UUID) (*warehouse.Profile, error) {
	var profile warehouse.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// IsLogistics reports whether the profile carries the logistics flag.
// Unknown profiles count as non-logistics.
func (r *GormWarehouseRepository) IsLogistics(ctx context.Context, id uuid.UUID) (bool, error) {
	profile, err := r.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return profile.Logistics, nil
}

// Save creates or updates a profile
func (r *GormWarehouseRepository) Save(ctx context.Context, profile *warehouse.Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

var _ warehouse.Repository = (*GormWarehouseRepository)(nil)
