package warehouse

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// Profile is a warehouse profile. The Logistics flag marks profiles that
// participate in reservation accounting; moves out of a non-logistics
// profile skip the reserve step entirely.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(128);not null"`
	Logistics bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (Profile) TableName() string {
	return "warehouse_profiles"
}

// NewProfile creates a warehouse profile
func NewProfile(name string, logistics bool) (*Profile, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Profile name cannot be empty")
	}
	now := time.Now()
	return &Profile{
		ID:        uuid.New(),
		Name:      name,
		Logistics: logistics,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Repository defines the interface for warehouse profile persistence
type Repository interface {
	// FindByID finds a profile by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)

	// IsLogistics reports whether the profile carries the logistics flag.
	// Unknown profiles are treated as non-logistics.
	IsLogistics(ctx context.Context, id uuid.UUID) (bool, error)

	// Save creates or updates a profile
	Save(ctx context.Context, profile *Profile) error
}
