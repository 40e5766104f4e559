package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"github.com/invoiceflow/backend/internal/domain/vendor"
	"gorm.io/gorm"
)

// GormParsingProfileRepository implements vendor.ParsingProfileRepository using GORM
type GormParsingProfileRepository struct {
	db *gorm.DB
}

// NewGormParsingProfileRepository creates a new GormParsingProfileRepository
func NewGormParsingProfileRepository(db *gorm.DB) *GormParsingProfileRepository {
	return &GormParsingProfileRepository{db: db}
}

// FindByID finds a profile by its ID
func (r *GormParsingProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*vendor.ParsingProfile, error) {
	var profile vendor.ParsingProfile
	if err := conn(ctx, r.db).First(&profile, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// FindByVendorID finds the profile for a vendor (one profile per vendor)
func (r *GormParsingProfileRepository) FindByVendorID(ctx context.Context, vendorID uuid.UUID) (*vendor.ParsingProfile, error) {
	var profile vendor.ParsingProfile
	if err := conn(ctx, r.db).First(&profile, "vendor_id = ?", vendorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// FindByVendorName finds a profile by vendor name, case-insensitively.
// Vendor names on invoices vary in casing between extractions.
func (r *GormParsingProfileRepository) FindByVendorName(ctx context.Context, vendorName string) (*vendor.ParsingProfile, error) {
	var profile vendor.ParsingProfile
	if err := conn(ctx, r.db).
		Where("LOWER(vendor_name) = LOWER(?)", strings.TrimSpace(vendorName)).
		First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// Save creates or updates a profile
func (r *GormParsingProfileRepository) Save(ctx context.Context, profile *vendor.ParsingProfile) error {
	return conn(ctx, r.db).Save(profile).Error
}

// Delete removes a profile
func (r *GormParsingProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&vendor.ParsingProfile{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormParsingProfileRepository implements vendor.ParsingProfileRepository
var _ vendor.ParsingProfileRepository = (*GormParsingProfileRepository)(nil)
